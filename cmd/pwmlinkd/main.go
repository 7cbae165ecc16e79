package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"flag"
	"fmt"

	"github.com/golang/glog"

	"github.com/robotalks/pwmlink/pkg/bus"
	"github.com/robotalks/pwmlink/pkg/config"
	fx "github.com/robotalks/pwmlink/pkg/framework"
	"github.com/robotalks/pwmlink/pkg/ingest"
	"github.com/robotalks/pwmlink/pkg/pwm"
	"github.com/robotalks/pwmlink/pkg/serial"
	"github.com/robotalks/pwmlink/pkg/telemetry"
)

func init() {
	config.SetupFlags()
}

// ingestion owns the serial port; failing to open it ends only this
// goroutine.
func ingestion(conf *config.Config, topic *bus.Topic) fx.RunFunc {
	return func(ctx context.Context) error {
		port, err := serial.Open(conf.SerialConfig())
		if err != nil {
			return err
		}
		defer port.Close()
		if err := port.Flush(); err != nil {
			glog.Warningf("serial flush: %v", err)
		}
		g := ingest.NewIngestor(port, topic)
		g.Echo = conf.Serial.Echo
		return g.Run(ctx)
	}
}

func forwarding(conf *config.Config, topic *bus.Topic) fx.RunFunc {
	return func(ctx context.Context) error {
		link, err := telemetry.Dial(conf.Telemetry.URL, conf.DeviceID)
		if err != nil {
			return fmt.Errorf("dial %s: %w", conf.Telemetry.URL, err)
		}
		defer link.Close()
		f := telemetry.NewForwarder(topic, link)
		if conf.Telemetry.Interval > 0 {
			f.Interval = conf.Telemetry.Interval
		}
		return f.Run(ctx)
	}
}

func main() {
	flag.Parse()
	defer glog.Flush()

	conf, err := config.Load()
	if err != nil {
		glog.Exitf("config: %v", err)
	}
	glog.Infof("pwmlink %s: serial %s@%d, pwm %s", conf.DeviceID, conf.Serial.Device, conf.Serial.Baud, conf.PWM.Backend)

	topics := bus.NewRegistry()
	topic := topics.Topic(bus.TopicPWMControl)

	servo, err := conf.OpenServo()
	if err != nil {
		glog.Errorf("pwm: %v", err)
	}
	driver := pwm.NewDriver(servo, topic.Subscribe())
	driver.MaxPorts = conf.PWM.MaxPorts

	runner := fx.NewRunner().HandleSignals()
	runner.Go(
		fx.NamedRun("ingest", ingestion(conf, topic)),
		fx.NamedRun("pwm", driver),
	)
	if conf.Telemetry.URL != "" {
		runner.Go(fx.NamedRun("telemetry", forwarding(conf, topic)))
	}
	if err := runner.Wait(); err != nil {
		glog.Exitf("%v", err)
	}
}
