package pwm

import (
	"github.com/warthog618/go-gpiocdev"
)

func requestEnableLine(conf SysfsConfig) (enableLine, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.AsOutput(0),
		gpiocdev.WithConsumer("pwmlink"),
	}
	if conf.EnableActiveLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	return gpiocdev.RequestLine(conf.EnableChip, conf.EnableLine, opts...)
}
