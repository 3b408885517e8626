package main

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/SatVerseX/mockmate-api/app"
	"github.com/SatVerseX/mockmate-api/app/config"
	"github.com/SatVerseX/mockmate-api/app/models"
	"github.com/SatVerseX/mockmate-api/gemini"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

func main() {
	baseCtx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	app.MustInitDB()

	queueURL := cfg.QueueURL
	if queueURL == "" {
		log.Fatal("QUEUE_URL environment variable is required")
	}
	if cfg.Gemini.APIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	geminiOpts := []gemini.Option{gemini.WithModel(cfg.Gemini.FeedbackModel)}
	if cfg.Gemini.BaseURL != "" {
		geminiOpts = append(geminiOpts, gemini.WithBaseURL(cfg.Gemini.BaseURL))
	}
	geminiClient := gemini.NewClient(cfg.Gemini.APIKey, geminiOpts...)

	// AWS config & SQS client
	awsCfg, err := awsconfig.LoadDefaultConfig(baseCtx)
	if err != nil {
		log.Fatalf("failed to load AWS config: %v", err)
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	log.Printf("Feedback worker started, listening on SQS queue: %s", queueURL)

	for {
		// Long-poll SQS
		recvCtx, cancel := context.WithTimeout(baseCtx, 30*time.Second)
		resp, err := sqsClient.ReceiveMessage(recvCtx, &sqs.ReceiveMessageInput{
			QueueUrl:            &queueURL,
			MaxNumberOfMessages: 5,
			WaitTimeSeconds:     20,  // enable long polling
			VisibilityTimeout:   300, // seconds; must exceed the per-job timeout
		})
		cancel()

		if err != nil {
			log.Printf("ReceiveMessage error: %v", err)
			time.Sleep(5 * time.Second)
			continue
		}

		if len(resp.Messages) == 0 {
			// No work; small sleep to avoid hot loop
			time.Sleep(2 * time.Second)
			continue
		}

		for _, m := range resp.Messages {
			if m.Body == nil {
				log.Printf("received message with empty body, skipping: %#v", m)
				continue
			}

			var msg models.FeedbackJobMessage
			if err := json.Unmarshal([]byte(*m.Body), &msg); err != nil {
				log.Printf("failed to unmarshal job message: %v, body=%s", err, *m.Body)
				// Delete to avoid a poison pill retrying forever.
				deleteMessage(sqsClient, queueURL, m)
				continue
			}
			if msg.JobID == "" || msg.InterviewID == "" {
				log.Printf("job message missing ids, dropping: %s", *m.Body)
				deleteMessage(sqsClient, queueURL, m)
				continue
			}

			jobCtx, jobCancel := context.WithTimeout(baseCtx, 3*time.Minute)
			err := app.ProcessFeedbackJob(jobCtx, geminiClient, msg)
			jobCancel()

			if err != nil {
				log.Printf("error processing job job_id=%s interview=%s: %v",
					msg.JobID, msg.InterviewID, err)
				// Don't delete: the message becomes visible again after the
				// visibility timeout and gets retried.
				continue
			}

			// Success (or recorded permanent failure): delete the message.
			deleteMessage(sqsClient, queueURL, m)
		}
	}
}

func deleteMessage(sqsClient *sqs.Client, queueURL string, m sqstypes.Message) {
	if m.ReceiptHandle == nil {
		return
	}
	_, err := sqsClient.DeleteMessage(context.Background(), &sqs.DeleteMessageInput{
		QueueUrl:      &queueURL,
		ReceiptHandle: m.ReceiptHandle,
	})
	if err != nil {
		log.Printf("failed to delete SQS message: %v", err)
	}
}
