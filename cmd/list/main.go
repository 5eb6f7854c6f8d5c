// Package main serves the back office: it lists the reports stored for one day.
package main

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/kylejryan/field-report-bot/internal/authz"
	"github.com/kylejryan/field-report-bot/internal/awsutil"
	"github.com/kylejryan/field-report-bot/internal/config"
	"github.com/kylejryan/field-report-bot/internal/ddb"
	"github.com/kylejryan/field-report-bot/internal/httpx"
	"github.com/kylejryan/field-report-bot/internal/logging"
	"github.com/kylejryan/field-report-bot/internal/models"
	"github.com/kylejryan/field-report-bot/internal/report"
	"github.com/kylejryan/field-report-bot/internal/s3io"
	"github.com/kylejryan/field-report-bot/internal/validate"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// lister is satisfied by *ddb.Repo.
type lister interface {
	ListByDay(ctx context.Context, pk string, limit int32) ([]models.Report, error)
}

// linker is satisfied by *s3io.Linker.
type linker interface {
	Link(ctx context.Context, ref string) (string, error)
}

// App holds the application state, including configuration and AWS clients.
type App struct {
	env   config.Env
	repo  lister
	links linker
	log   *zap.Logger
	now   func() time.Time
}

type listResponse struct {
	Date    string          `json:"date"`
	Count   int             `json:"count"`
	Reports []models.Report `json:"reports"`
}

// handler lists the reports of ?date=yyyy-mm-dd, today by default.
func (a *App) handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	sub, err := authz.FromHTTPAPI(req, a.env.DevBypassAuth)
	if err != nil {
		return httpx.Error(http.StatusUnauthorized, "missing user")
	}

	day := req.QueryStringParameters["date"]
	if day == "" {
		day = a.now().Format("2006-01-02")
	}
	if err := validate.Day(day); err != nil {
		return httpx.Error(http.StatusBadRequest, err.Error())
	}
	t, err := time.Parse("2006-01-02", day)
	if err != nil {
		return httpx.Error(http.StatusBadRequest, "invalid date")
	}

	limit := defaultLimit
	if raw := req.QueryStringParameters["limit"]; raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return httpx.Error(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = min(n, maxLimit)
	}

	items, err := a.repo.ListByDay(ctx, report.DayKey(t), int32(limit))
	if err != nil {
		a.log.Error("list error", zap.String("day", day), zap.String("caller", sub), zap.Error(err))
		return httpx.Error(http.StatusInternalServerError, "db error")
	}
	if items == nil {
		items = []models.Report{}
	}
	a.attachLinks(ctx, items)
	return httpx.JSON(http.StatusOK, listResponse{Date: day, Count: len(items), Reports: items})
}

// attachLinks presigns a download link for every stored receipt. A report
// whose link cannot be issued is still listed, without a link.
func (a *App) attachLinks(ctx context.Context, items []models.Report) {
	if a.links == nil {
		return
	}
	for i := range items {
		if !items[i].AttachmentStored() || items[i].AttachmentRef == models.AttachmentLinkUnavailable {
			continue
		}
		link, err := a.links.Link(ctx, items[i].AttachmentRef)
		if err != nil {
			a.log.Warn("presign receipt link", zap.String("report_id", items[i].ReportID), zap.Error(err))
			continue
		}
		items[i].AttachmentURL = link
	}
}

// main initializes the application and starts the Lambda handler.
func main() {
	env := config.MustLoadAPI()
	log, err := logging.New(env.LogLevel)
	if err != nil {
		panic(err)
	}
	cfg, endpoint, err := awsutil.Load(context.Background(), env.Region)
	if err != nil {
		log.Fatal("load aws config", zap.Error(err))
	}
	s3c := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = endpoint != ""
	})
	app := &App{
		env:   env,
		repo:  &ddb.Repo{DB: dynamodb.NewFromConfig(cfg), Table: env.Table},
		links: s3io.NewLinker(s3c, env.LinkTTL),
		log:   log,
		now:   func() time.Time { return time.Now().In(env.Location) },
	}
	lambda.Start(app.handler)
}
