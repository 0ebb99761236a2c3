package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/dasmlab/kashi/pkg/service"
	"github.com/sirupsen/logrus"
)

var (
	serverAddr  = flag.String("addr", "localhost:50051", "gRPC server address")
	msgType     = flag.String("type", "GET_LYRICS", "Message type: TRANSLATE, GET_LYRICS, GET_TRANSLATION, REGISTER_TRANSLATION")
	payload     = flag.String("payload", "", "Message payload as JSON")
	payloadFile = flag.String("file", "", "Path to a file holding the payload JSON")
	timeout     = flag.Duration("timeout", 30*time.Second, "Request timeout")
)

func main() {
	flag.Parse()

	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)

	// Read payload
	var raw string
	if *payloadFile != "" {
		data, err := os.ReadFile(*payloadFile)
		if err != nil {
			logger.WithError(err).Fatalf("Failed to read file: %s", *payloadFile)
		}
		raw = string(data)
	} else if *payload != "" {
		raw = *payload
	} else {
		logger.Fatal("Either -file or -payload must be provided")
	}

	var body structpb.Struct
	envelope := fmt.Sprintf(`{"type":%q,"payload":%s}`, *msgType, raw)
	if err := protojson.Unmarshal([]byte(envelope), &body); err != nil {
		logger.WithError(err).Fatal("Payload is not a JSON object")
	}

	logger.WithFields(logrus.Fields{
		"server": *serverAddr,
		"type":   *msgType,
	}).Info("Connecting to Kashi server...")

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, *serverAddr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to server")
	}
	defer conn.Close()

	client := service.NewBrokerClient(conn)

	startTime := time.Now()
	resp, err := client.Dispatch(ctx, &body)
	if err != nil {
		logger.WithError(err).Fatal("Dispatch failed")
	}
	duration := time.Since(startTime)

	out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(resp)
	if err != nil {
		logger.WithError(err).Fatal("Failed to render response")
	}

	separator := strings.Repeat("=", 80)
	fmt.Println(separator)
	fmt.Printf("%s RESPONSE (%.2f seconds)\n", *msgType, duration.Seconds())
	fmt.Println(separator)
	fmt.Println(string(out))
	fmt.Println(separator)

	success := resp.GetFields()["success"].GetBoolValue()
	logger.WithFields(logrus.Fields{
		"duration_seconds": duration.Seconds(),
		"success":          success,
	}).Info("Message completed")
	if !success {
		os.Exit(1)
	}
}
