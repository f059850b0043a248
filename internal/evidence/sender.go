package evidence

import (
	"context"
	"log/slog"
)

// Sender delivers a verification code out-of-band. Real SMS delivery is out of
// scope; deployments plug in a gateway client here.
type Sender interface {
	Send(ctx context.Context, mobileNumber, code string) error
}

// LogSender records that a code was issued without exposing the code itself.
// Used when no gateway is configured and simulated delivery is off.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, mobileNumber, _ string) error {
	if s.Logger != nil {
		s.Logger.InfoContext(ctx, "otp delivery requested", "mobile_number", mask(mobileNumber))
	}
	return nil
}

// mask hides all but the trailing digits of a mobile number in logs.
func mask(mobile string) string {
	if len(mobile) <= 4 {
		return "****"
	}
	return "******" + mobile[len(mobile)-4:]
}
