package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

type transitionMessage struct {
	EventID    string           `json:"event_id"`
	SubjectID  string           `json:"subject_id"`
	FamilyID   string           `json:"family_id"`
	RegionID   string           `json:"region_id"`
	RegionName string           `json:"region_name"`
	Transition string           `json:"transition"`
	Timestamp  int64            `json:"timestamp"`
	Location   *locationPayload `json:"location,omitempty"`
}

type locationPayload struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Address   string  `json:"address,omitempty"`
}

type region struct {
	id      string
	name    string
	lat     float64
	lon     float64
	address string
}

var regions = []region{
	{"r-school", "School", 53.3498, -6.2603, "1 Main St"},
	{"r-home", "Home", 53.3522, -6.2649, "14 Oak Rd"},
	{"r-grandma", "Grandma's", 53.3441, -6.2578, ""},
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "usage: %s <interval_seconds>\n", os.Args[0])
		os.Exit(1)
	}

	intervalSec, err := strconv.Atoi(os.Args[1])
	if err != nil || intervalSec <= 0 {
		fmt.Fprintf(os.Stderr, "error: interval must be a positive integer\n")
		os.Exit(1)
	}

	broker := "tcp://localhost:1883"
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		broker = v
	}
	familyID := "f1"
	if v := os.Getenv("FAMILY_ID"); v != "" {
		familyID = v
	}
	subjectID := "c1"
	if v := os.Getenv("SUBJECT_ID"); v != "" {
		subjectID = v
	}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID("located-simulator")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalf("mqtt connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	log.Printf("connected to %s, publishing every %ds...", broker, intervalSec)

	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	defer ticker.Stop()

	for range ticker.C {
		r := regions[rand.Intn(len(regions))]
		transition := "enter"
		if rand.Float64() < 0.5 {
			transition = "exit"
		}

		msg := transitionMessage{
			EventID:    uuid.NewString(),
			SubjectID:  subjectID,
			FamilyID:   familyID,
			RegionID:   r.id,
			RegionName: r.name,
			Transition: transition,
			Timestamp:  time.Now().Unix(),
			Location: &locationPayload{
				Latitude:  r.lat,
				Longitude: r.lon,
				Address:   r.address,
			},
		}

		payload, _ := json.Marshal(msg)
		topic := fmt.Sprintf("family/%s/transitions", familyID)

		token := client.Publish(topic, 1, false, payload)
		token.Wait()

		log.Printf("published to %s: %s", topic, payload)
	}
}
