package app

import (
	"context"
	"encoding/json"
	"log"

	aws "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/SatVerseX/mockmate-api/app/config"
	"github.com/SatVerseX/mockmate-api/app/models"
)

// enqueueFeedbackJob hands a finished interview to the feedback worker. A
// missing queue URL is logged and skipped so local development works without
// SQS; the job row stays queued for a later manual requeue.
func enqueueFeedbackJob(ctx context.Context, msg models.FeedbackJobMessage) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if cfg.QueueURL == "" {
		log.Printf("QUEUE_URL missing in config; skipping enqueue for job=%s", msg.JobID)
		return nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return err
	}
	sqsClient := sqs.NewFromConfig(awsCfg)

	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	_, err = sqsClient.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    &cfg.QueueURL,
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return err
	}

	log.Printf("Enqueued feedback job job_id=%s interview_id=%s", msg.JobID, msg.InterviewID)
	return nil
}
