package main

import (
	"context"
	"fmt"

	"github.com/kylejryan/field-report-bot/internal/awsutil"
	"github.com/kylejryan/field-report-bot/internal/config"
	"github.com/kylejryan/field-report-bot/internal/ddb"
	"github.com/kylejryan/field-report-bot/internal/drive"
	"github.com/kylejryan/field-report-bot/internal/events"
	"github.com/kylejryan/field-report-bot/internal/pgstore"
	"github.com/kylejryan/field-report-bot/internal/report"
	"github.com/kylejryan/field-report-bot/internal/s3io"
	"github.com/kylejryan/field-report-bot/internal/sheets"
	"github.com/kylejryan/field-report-bot/internal/slack"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// backends holds the commit collaborators selected by configuration.
type backends struct {
	records  report.RecordStore
	objects  report.ObjectStore
	notifier report.Notifier
	alerter  report.Alerter
	closers  []func()

	aws      *aws.Config
	endpoint string
}

func (b *backends) close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func buildBackends(ctx context.Context, env config.Env, log *zap.Logger) (*backends, error) {
	b := &backends{}
	var err error
	if b.records, err = b.recordStore(ctx, env, log); err != nil {
		b.close()
		return nil, err
	}
	if b.objects, err = b.objectStore(ctx, env, log); err != nil {
		b.close()
		return nil, err
	}
	if err = b.eventsPublisher(ctx, env, log); err != nil {
		b.close()
		return nil, err
	}
	if env.SlackConfigured() {
		b.alerter = slack.NewAlerter(env.SlackToken, env.SlackChannel, log)
	}
	return b, nil
}

func googleOptions(env config.Env, scopes ...string) []option.ClientOption {
	return []option.ClientOption{
		option.WithCredentialsJSON([]byte(env.GoogleCredentialsJSON)),
		option.WithScopes(scopes...),
	}
}

func (b *backends) awsConfig(ctx context.Context, env config.Env) (aws.Config, error) {
	if b.aws != nil {
		return *b.aws, nil
	}
	cfg, endpoint, err := awsutil.Load(ctx, env.Region)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	b.aws, b.endpoint = &cfg, endpoint
	return cfg, nil
}

func (b *backends) recordStore(ctx context.Context, env config.Env, log *zap.Logger) (report.RecordStore, error) {
	switch env.RecordStore {
	case config.RecordSheets:
		if !env.GoogleConfigured() {
			log.Warn("GOOGLE_CREDENTIALS_JSON not set, reports will only be logged")
			return report.LogRecordStore{Log: log}, nil
		}
		return sheets.New(ctx, env.SpreadsheetID, env.SheetRange, googleOptions(env, sheets.Scope)...)
	case config.RecordDynamoDB:
		cfg, err := b.awsConfig(ctx, env)
		if err != nil {
			return nil, err
		}
		return &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table}, nil
	case config.RecordPostgres:
		st, err := pgstore.New(ctx, env.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, st.Close)
		return st, nil
	default:
		return report.LogRecordStore{Log: log}, nil
	}
}

func (b *backends) objectStore(ctx context.Context, env config.Env, log *zap.Logger) (report.ObjectStore, error) {
	switch env.ObjectStore {
	case config.ObjectDrive:
		if !env.GoogleConfigured() {
			log.Warn("GOOGLE_CREDENTIALS_JSON not set, receipt photos will not be stored")
			return report.NopObjectStore{}, nil
		}
		return drive.New(ctx, env.DriveFolderID, googleOptions(env, drive.Scope)...)
	case config.ObjectS3:
		cfg, err := b.awsConfig(ctx, env)
		if err != nil {
			return nil, err
		}
		client := s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = b.endpoint != ""
		})
		return s3io.New(client, env.Bucket, log), nil
	default:
		return report.NopObjectStore{}, nil
	}
}

func (b *backends) eventsPublisher(ctx context.Context, env config.Env, log *zap.Logger) error {
	switch env.EventsBackend {
	case config.EventsNATS:
		p, err := events.ConnectNATS(env.NATSURL, env.EventsSubject, log)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() { _ = p.Close() })
		b.notifier = &events.Notifier{Publisher: p}
	case config.EventsRedis:
		p, err := events.ConnectRedis(ctx, env.RedisURL, env.EventsSubject)
		if err != nil {
			return err
		}
		b.closers = append(b.closers, func() { _ = p.Close() })
		b.notifier = &events.Notifier{Publisher: p}
	}
	return nil
}
