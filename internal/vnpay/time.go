package vnpay

import (
	"time"

	"warimas-pay/internal/logger"

	"go.uber.org/zap"
)

// TimeLayout is the yyyyMMddHHmmss format used by every vnp_*Date field.
const TimeLayout = "20060102150405"

var gatewayLoc = loadGatewayLocation()

func loadGatewayLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		logger.L().Warn("failed to load Asia/Ho_Chi_Minh location, using fixed GMT+7", zap.Error(err))
		return time.FixedZone("GMT+7", 7*60*60)
	}
	return loc
}

// FormatTime renders t in the gateway timezone.
func FormatTime(t time.Time) string {
	return t.In(gatewayLoc).Format(TimeLayout)
}

// ParseTime reads a gateway timestamp as GMT+7 wall clock.
func ParseTime(s string) (time.Time, error) {
	return time.ParseInLocation(TimeLayout, s, gatewayLoc)
}

// Location is the timezone the gateway and its customers use.
func Location() *time.Location {
	return gatewayLoc
}
