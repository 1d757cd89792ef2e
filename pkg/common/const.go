package common

const (
	KEY_SYSTEM_PARAM = "system_param:%s"
	KEY_LEADERBOARD  = "leaderboard:%s"
)

const (
	SYS_PARAM_RISK_THRESHOLDS = "RISK_THRESHOLDS"
)

const (
	TIMEFRAME_24H      = "24h"
	TIMEFRAME_7D       = "7d"
	TIMEFRAME_30D      = "30d"
	TIMEFRAME_90D      = "90d"
	TIMEFRAME_ALL_TIME = "all_time"
)

func GetTimeframeList() []string {
	return []string{
		TIMEFRAME_24H,
		TIMEFRAME_7D,
		TIMEFRAME_30D,
		TIMEFRAME_90D,
		TIMEFRAME_ALL_TIME,
	}
}

const (
	KEY_LOG_HOOK_SEND_ALERT = "send_alert"
)
