// Package scheduler runs the periodic background jobs: reminding ward
// officials about untouched cases and closing out resolved cases that have
// gone quiet.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/openward/ward-feedback-api/databases"
	"github.com/openward/ward-feedback-api/lifecycle"
	"github.com/openward/ward-feedback-api/models"
	templates "github.com/openward/ward-feedback-api/templates/html"
)

const (
	staleAfterDays     = 3
	autoCloseAfterDays = 30
)

// schedulerPrincipal is the actor stamped on audit records written by
// background jobs.
var schedulerPrincipal = models.Principal{
	UserID:   "scheduler",
	Username: "scheduler",
	Role:     models.RoleAdmin,
}

// Scheduler handles periodic background jobs for the feedback case lifecycle
type Scheduler struct {
	cron       *cron.Cron
	Cases      databases.CaseDatabase
	UDB        databases.UserDatabase
	LockDB     databases.SchedulerLockDatabase
	Lifecycle  *lifecycle.Engine
	instanceID string
}

// NewScheduler creates a new scheduler instance. Closes go through the
// lifecycle engine so background jobs obey the same per-case locking and
// transition rules as the API.
func NewScheduler(
	caseDB databases.CaseDatabase,
	uDB databases.UserDatabase,
	lockDB databases.SchedulerLockDatabase,
	engine *lifecycle.Engine,
) *Scheduler {
	// Generate a unique instance ID for this pod
	instanceID := os.Getenv("DYNO") // Heroku sets this to "web.1", "web.2", etc.
	if instanceID == "" {
		instanceID = fmt.Sprintf("instance-%d", time.Now().UnixNano())
	}

	return &Scheduler{
		cron:       cron.New(cron.WithLocation(time.UTC)),
		Cases:      caseDB,
		UDB:        uDB,
		LockDB:     lockDB,
		Lifecycle:  engine,
		instanceID: instanceID,
	}
}

// Start begins the scheduler with all registered jobs
func (s *Scheduler) Start() {
	// Remind ward officials about untouched NEW cases daily at 3 AM UTC
	_, err := s.cron.AddFunc("0 3 * * *", s.processStaleCases)
	if err != nil {
		zap.S().Errorw("failed to register stale case job", "error", err)
	}

	// Close quiet resolved cases daily at 4 AM UTC
	_, err = s.cron.AddFunc("0 4 * * *", s.autoCloseResolvedCases)
	if err != nil {
		zap.S().Errorw("failed to register auto close job", "error", err)
	}

	s.cron.Start()
	zap.S().Info("Case lifecycle scheduler started")
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	zap.S().Info("Case lifecycle scheduler stopped")
}

// processStaleCases finds NEW cases nobody has touched and emails each
// affected ward's officials a single summary
func (s *Scheduler) processStaleCases() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Try to acquire distributed lock (10 minute TTL)
	acquired, err := s.LockDB.TryAcquireLock(ctx, "stale_case_job", s.instanceID, 10*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for stale case job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Stale case job already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "stale_case_job", s.instanceID)

	zap.S().Infow("Running stale case reminder job", "instance", s.instanceID)

	cutoff := time.Now().Add(-staleAfterDays * 24 * time.Hour)
	filter := bson.M{
		"case.status":    models.StatusNew,
		"case.parentID":  bson.M{"$exists": false},
		"case.updatedAt": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	}

	rows, err := s.Cases.Aggregate(ctx, []bson.M{
		{"$match": filter},
		{"$group": bson.M{
			"_id":   "$case.wardID",
			"count": bson.M{"$sum": 1},
		}},
	})
	if err != nil {
		zap.S().Errorw("failed to find stale cases", "error", err)
		return
	}
	if len(rows) == 0 {
		zap.S().Info("No stale cases found")
		return
	}

	totalStale := 0
	countByWard := map[string]int{}
	for _, row := range rows {
		wardID, _ := row["_id"].(string)
		count := toInt(row["count"])
		countByWard[wardID] = count
		totalStale += count
	}

	remindersSent := 0
	for wardID, count := range countByWard {
		officials, err := s.UDB.Find(ctx, bson.M{
			"user.role":    string(models.RoleOfficial),
			"user.scopeID": wardID,
		})
		if err != nil {
			zap.S().Errorw("failed to find ward officials", "error", err, "wardId", wardID)
			continue
		}

		for _, official := range officials {
			if official.Details.Email == "" {
				continue
			}
			subject := "Untouched Feedback Cases in Your Ward - OpenWard"
			htmlContent := templates.RenderStaleCaseReminderEmail(official.Details.Username, wardID, count, staleAfterDays)
			plainText := fmt.Sprintf("%d new feedback cases in ward %s have not been picked up for more than %d days.", count, wardID, staleAfterDays)

			if err := s.sendEmail(official.Details.Email, official.Details.Username, subject, htmlContent, plainText); err != nil {
				zap.S().Errorw("failed to send stale case reminder", "error", err, "wardId", wardID)
				continue
			}
			remindersSent++
		}
	}

	zap.S().Infow("Stale case reminder job complete",
		"staleCases", totalStale,
		"wards", len(countByWard),
		"remindersSent", remindersSent,
	)
}

// toInt normalizes the numeric types the driver hands back for aggregates.
func toInt(v interface{}) int {
	switch n := v.(type) {
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float64:
		return int(n)
	case int:
		return n
	}
	return 0
}

// autoCloseResolvedCases closes resolved cases with no activity for
// autoCloseAfterDays, leaving the same audit trail a manual close would
func (s *Scheduler) autoCloseResolvedCases() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Try to acquire distributed lock (15 minute TTL)
	acquired, err := s.LockDB.TryAcquireLock(ctx, "auto_close_job", s.instanceID, 15*time.Minute)
	if err != nil {
		zap.S().Errorw("failed to acquire lock for auto close job", "error", err)
		return
	}
	if !acquired {
		zap.S().Debug("Auto close job already running on another instance, skipping")
		return
	}
	defer s.LockDB.ReleaseLock(ctx, "auto_close_job", s.instanceID)

	zap.S().Infow("Running auto close job", "instance", s.instanceID)

	cutoff := time.Now().Add(-autoCloseAfterDays * 24 * time.Hour)
	filter := bson.M{
		"case.status":    models.StatusResolved,
		"case.parentID":  bson.M{"$exists": false},
		"case.updatedAt": bson.M{"$lt": primitive.NewDateTimeFromTime(cutoff)},
	}

	quietCases, err := s.Cases.Find(ctx, filter)
	if err != nil {
		zap.S().Errorw("failed to find quiet resolved cases", "error", err)
		return
	}

	closed := 0
	for _, quietCase := range quietCases {
		if err := s.closeCase(ctx, quietCase); err != nil {
			if errors.Is(err, models.ErrInvalidTransition) {
				// the case was merged or moved since the snapshot
				zap.S().Debugw("case changed since snapshot, skipping auto close", "caseId", quietCase.ID.Hex())
				continue
			}
			zap.S().Errorw("failed to auto close case", "error", err, "caseId", quietCase.ID.Hex())
			continue
		}
		closed++
	}

	zap.S().Infow("Auto close job complete",
		"candidates", len(quietCases),
		"closed", closed,
	)
}

// closeCase moves one case to CLOSED through the lifecycle engine, which
// re-reads the case under its per-case lock and writes the audit record in
// the same transaction as the update
func (s *Scheduler) closeCase(ctx context.Context, quietCase models.Case) error {
	if _, err := s.Lifecycle.Transition(ctx, schedulerPrincipal, quietCase.ID, models.StatusClosed); err != nil {
		return err
	}

	s.notifyAutoClose(ctx, quietCase)
	return nil
}

// notifyAutoClose emails the ward's officials about an automatic closure.
// Failures are logged and swallowed; the close itself already happened.
func (s *Scheduler) notifyAutoClose(ctx context.Context, closedCase models.Case) {
	officials, err := s.UDB.Find(ctx, bson.M{
		"user.role":    string(models.RoleOfficial),
		"user.scopeID": closedCase.Details.WardID,
	})
	if err != nil {
		zap.S().Warnw("failed to find ward officials for auto close notice", "error", err, "caseId", closedCase.ID.Hex())
		return
	}

	for _, official := range officials {
		if official.Details.Email == "" {
			continue
		}
		subject := "Feedback Case Closed Automatically - OpenWard"
		htmlContent := templates.RenderCaseAutoClosedEmail(official.Details.Username, closedCase.ID.Hex(), autoCloseAfterDays)
		plainText := fmt.Sprintf("Case %s was resolved more than %d days ago and has been closed automatically.", closedCase.ID.Hex(), autoCloseAfterDays)

		if err := s.sendEmail(official.Details.Email, official.Details.Username, subject, htmlContent, plainText); err != nil {
			zap.S().Warnw("failed to send auto close notice", "error", err, "caseId", closedCase.ID.Hex())
		}
	}
}

func (s *Scheduler) sendEmail(toEmail, toName, subject, htmlContent, plainText string) error {
	from := mail.NewEmail("OpenWard", "no-reply@openward.example")
	to := mail.NewEmail(toName, toEmail)
	message := mail.NewSingleEmail(from, subject, to, plainText, htmlContent)
	client := sendgrid.NewSendClient(os.Getenv("SENDGRID_API_KEY"))
	response, err := client.Send(message)
	if err != nil {
		return err
	}
	if response.StatusCode >= 400 {
		zap.S().Errorw("sendgrid returned error status", "status", response.StatusCode, "body", response.Body)
	}
	return nil
}
