// Command sensor-sim publishes synthetic weather station packets so the
// full ingest pipeline can be exercised without hardware.
package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/Lukasxlama/weather-station-web-app/internal/model"
)

func main() {
	brokerAddr := flag.String("broker", "tcp://localhost:1883", "MQTT broker address, e.g. tcp://localhost:1883")
	topic := flag.String("topic", "weatherstation/packets", "Topic to publish packets on")
	interval := flag.Duration("interval", 5*time.Second, "Interval between published packets")
	baseTemp := flag.Float64("base-temp", 21.5, "Baseline temperature in degrees Celsius")
	errorRate := flag.Float64("error-rate", 0.05, "Fraction of packets published as decode failures")

	flag.Parse()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	clientID := fmt.Sprintf("sensor-sim-%s", uuid.NewString())
	opts := mqtt.NewClientOptions().AddBroker(*brokerAddr).SetClientID(clientID)
	opts = opts.SetOrderMatters(false)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("failed to connect to broker: %v", token.Error())
	}
	log.Printf("connected to MQTT broker %s as %s", *brokerAddr, clientID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	publish := func() {
		packet := synthesizePacket(rng, *baseTemp, *errorRate)

		payload, err := json.Marshal(packet)
		if err != nil {
			log.Printf("failed to encode packet: %v", err)
			return
		}

		token := client.Publish(*topic, 0, false, payload)
		token.Wait()
		if token.Error() != nil {
			log.Printf("failed to publish packet: %v", token.Error())
			return
		}
		log.Printf("published packet at %s (error=%v)", packet.Timestamp.Format(time.RFC3339), packet.Error)
	}

	publish()
	for {
		select {
		case <-ctx.Done():
			client.Disconnect(250)
			log.Println("simulator stopped")
			return
		case <-ticker.C:
			publish()
		}
	}
}

func synthesizePacket(rng *rand.Rand, baseTemp, errorRate float64) model.Packet {
	raw := make([]byte, 16)
	rng.Read(raw)

	packet := model.Packet{
		Timestamp: time.Now().UTC(),
		RSSIdBm:   -90 + rng.Float64()*30,
		SNRdB:     -5 + rng.Float64()*15,
		RawHex:    hex.EncodeToString(raw),
	}

	if rng.Float64() < errorRate {
		packet.Error = true
		packet.ErrorType = "crc_mismatch"
		return packet
	}

	packet.Sensor = &model.SensorData{
		TemperatureC: baseTemp + rng.Float64()*4 - 2,
		HumidityPct:  40 + rng.Float64()*20,
		PressureHPa:  1005 + rng.Float64()*20,
		GasKOhms:     50 + rng.Float64()*100,
	}
	return packet
}
