package tasks

import (
	"context"
	"time"

	"github.com/robotalks/rtio/pkg/framework"
	"github.com/robotalks/rtio/pkg/hal"
)

// PWMBasePeriod is the period of the PWM signal.
const PWMBasePeriod = 10 * time.Millisecond

const (
	minDivisor = 1
	maxDivisor = 100
)

// Divisor maps the PWM task period to the divisor of the on time:
// 500ms and below gives 100, 5000ms and above gives 1.
func Divisor(pwmPeriodMS int) int {
	div := 100 - ((pwmPeriodMS-500)*99)/4500
	if div < minDivisor {
		return minDivisor
	}
	if div > maxDivisor {
		return maxDivisor
	}
	return div
}

// Actuator toggles the GPIO and updates the PWM duty every cycle.
type Actuator struct {
	PWM     hal.PWM
	GPIO    hal.GPIO
	Periods *Periods
}

// Actuate runs one cycle. The duty is set even if the toggle failed.
func (a *Actuator) Actuate(context.Context) error {
	var errs framework.AggregatedError
	if a.GPIO != nil {
		errs.Add(a.GPIO.Toggle())
	}
	if a.PWM != nil {
		div := Divisor(a.Periods.PWMPeriodMS())
		errs.Add(a.PWM.SetDuty(PWMBasePeriod, PWMBasePeriod/time.Duration(div)))
	}
	return errs.Aggregate()
}
