package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/pkg/jobs"
	"github.com/noah-isme/mindsetu-api/pkg/mailer"
)

// InviteJobType routes invitation emails through the job queue.
const InviteJobType = "mail.invite"

// InvitationPayload is the job payload for an invitation email.
type InvitationPayload struct {
	Email     string
	FirstName string
	Role      models.UserRole
	Institute string
	InvitedBy string
}

// NotificationService delivers invitation emails to pre-registered users.
type NotificationService struct {
	sender    mailer.Sender
	signupURL string
	logger    *zap.Logger
}

// NewNotificationService constructs the service.
func NewNotificationService(sender mailer.Sender, signupURL string, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{sender: sender, signupURL: signupURL, logger: logger}
}

// Register binds the invitation handler to the queue.
func (s *NotificationService) Register(queue *jobs.Queue) {
	queue.Handle(InviteJobType, s.HandleInvite)
}

// HandleInvite renders and sends one invitation. Returned errors make the queue retry.
func (s *NotificationService) HandleInvite(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(InvitationPayload)
	if !ok {
		s.logger.Error("invalid invitation payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.sender.Send(ctx, s.invitation(payload)); err != nil {
		return fmt.Errorf("send invitation to %s: %w", payload.Email, err)
	}
	s.logger.Info("invitation sent", zap.String("job_id", job.ID), zap.String("role", string(payload.Role)))
	return nil
}

func (s *NotificationService) invitation(p InvitationPayload) mailer.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", p.FirstName)
	if p.InvitedBy != "" {
		fmt.Fprintf(&b, "%s has added you to %s on Mindsetu as a %s.\n", p.InvitedBy, p.Institute, strings.ToLower(p.Role.Label()))
	} else {
		fmt.Fprintf(&b, "You have been added to %s on Mindsetu as a %s.\n", p.Institute, strings.ToLower(p.Role.Label()))
	}
	b.WriteString("Complete your signup with this email address and your institute name to set a password.\n")
	if s.signupURL != "" {
		fmt.Fprintf(&b, "\n%s\n", s.signupURL)
	}

	return mailer.Message{
		ToName:  p.FirstName,
		ToEmail: p.Email,
		Subject: "You're invited to Mindsetu",
		Text:    b.String(),
	}
}
