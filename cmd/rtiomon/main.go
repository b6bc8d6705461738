package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/rtio/pkg/telemetry"
	"github.com/robotalks/rtio/pkg/transport/mqtt"
)

var (
	mqttURL    = "mqtt://localhost:1883/"
	outputJSON bool
)

func init() {
	if val := os.Getenv("RTIO_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.BoolVar(&outputJSON, "json", outputJSON, "Print reports in JSON.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.Dial(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	defer q.Close()

	_, err = q.SubReports("+/telemetry", func(device string, r *telemetry.Report) {
		if outputJSON {
			out, err := r.JSON()
			if err != nil {
				log.Printf("%s: encode error: %v", device, err)
				return
			}
			log.Printf("%s: %s", device, out)
			return
		}
		log.Printf("%s: %s", device, r)
	})
	if err != nil {
		log.Fatalln(err)
	}
	_, err = q.Sub("+/status", func(topic string, payload []byte) {
		code, err := mqtt.ParseStatus(payload)
		if err != nil {
			log.Printf("%s: bad status %q", topic, payload)
			return
		}
		log.Printf("%s: %d", topic, code)
	})
	if err != nil {
		log.Fatalln(err)
	}
	<-(chan struct{})(nil)
}
