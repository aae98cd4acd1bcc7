package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/mindsetu-api/internal/models"
	"github.com/noah-isme/mindsetu-api/internal/repository"
	"github.com/noah-isme/mindsetu-api/pkg/config"
	"github.com/noah-isme/mindsetu-api/pkg/database"
	"github.com/noah-isme/mindsetu-api/pkg/logger"
)

type seedUser struct {
	key       string
	first     string
	last      string
	email     string
	role      models.UserRole
	activated bool
}

type seedInstitute struct {
	name        string
	users       []seedUser
	assignments []seedAssignment
}

type seedAssignment struct {
	key   string
	title string
	due   time.Duration
}

type seedSubmission struct {
	student    string
	assignment string
	offset     time.Duration
	status     models.SubmissionStatus
}

const day = 24 * time.Hour

var institutes = []seedInstitute{
	{
		name: "greenwood high",
		users: []seedUser{
			{key: "alice", first: "Alice", last: "Principal", email: "alice@greenwood.edu", role: models.RoleAdmin, activated: true},
			{key: "bob", first: "Bob", last: "Smith", email: "bob@greenwood.edu", role: models.RoleStudent, activated: true},
			{key: "charlie", first: "Charlie", last: "Brown", email: "charlie@greenwood.edu", role: models.RoleStudent, activated: true},
			{key: "diana", first: "Diana", last: "Prince", email: "diana@greenwood.edu", role: models.RoleStudent},
			{key: "edward", first: "Edward", last: "Nigma", email: "edward@greenwood.edu", role: models.RoleStudent, activated: true},
			{key: "fiona", first: "Fiona", last: "Gallagher", email: "fiona@greenwood.edu", role: models.RoleStudent, activated: true},
		},
		assignments: []seedAssignment{
			{key: "algebra", title: "Intro to Algebra (Greenwood)", due: 5 * day},
			{key: "physics", title: "Physics Lab: Motion (Greenwood)", due: -2 * day},
		},
	},
	{
		name: "oakwood academy",
		users: []seedUser{
			{key: "david", first: "David", last: "Dean", email: "david@oakwood.edu", role: models.RoleAdmin, activated: true},
			{key: "eve", first: "Eve", last: "Online", email: "eve@oakwood.edu", role: models.RoleStudent, activated: true},
			{key: "frank", first: "Frank", last: "Castle", email: "frank@oakwood.edu", role: models.RoleStudent, activated: true},
		},
		assignments: []seedAssignment{
			{key: "essay", title: "Essay: Social Media (Oakwood)", due: 10 * day},
			{key: "history", title: "History Quiz Ch. 1-3 (Oakwood)", due: -5 * day},
		},
	},
}

var submissions = []seedSubmission{
	{student: "bob", assignment: "physics", offset: day, status: models.SubmissionLate},
	{student: "charlie", assignment: "algebra", offset: -5 * day, status: models.SubmissionOnTime},
	{student: "eve", assignment: "history", offset: -12 * time.Hour, status: models.SubmissionOnTime},
	{student: "fiona", assignment: "physics", offset: -6 * time.Hour, status: models.SubmissionOnTime},
}

var (
	positive = []models.Mood{models.MoodHappy, models.MoodCalm, models.MoodExcited, models.MoodGrateful}
	negative = []models.Mood{models.MoodSad, models.MoodAnxious, models.MoodStressed}
)

type journalPlan struct {
	count int
	step  int
	start int
	mood  func(i int) models.Mood
	text  func(m models.Mood, i int) string
}

var journals = map[string]journalPlan{
	"bob": {count: 15, step: 2, mood: func(i int) models.Mood {
		if i%4 == 0 {
			return negative[i%len(negative)]
		}
		return positive[i%len(positive)]
	}, text: func(m models.Mood, i int) string {
		quality := "okay"
		if i%3 == 0 {
			quality = "good"
		}
		return fmt.Sprintf("Feeling %s today. Day was mostly %s.", strings.ToLower(string(m)), quality)
	}},
	"charlie": {count: 20, step: 1, start: 5, mood: func(i int) models.Mood {
		if i%3 == 0 {
			return positive[i%len(positive)]
		}
		return negative[i%len(negative)]
	}, text: func(m models.Mood, _ int) string {
		load := "manageable"
		if m == models.MoodStressed {
			load = "heavy"
		}
		return fmt.Sprintf("Workload is %s. %s feelings.", load, strings.ToLower(string(m)))
	}},
	"edward": {count: 18, step: 1, mood: func(i int) models.Mood {
		switch {
		case i%5 == 0:
			return models.MoodCalm
		case i%2 == 0:
			return models.MoodStressed
		default:
			return models.MoodAnxious
		}
	}, text: func(m models.Mood, _ int) string {
		return fmt.Sprintf("Feeling quite %s. Deadlines approaching.", strings.ToLower(string(m)))
	}},
	"fiona": {count: 25, step: 1, mood: func(i int) models.Mood {
		switch {
		case i < 5:
			return models.MoodExcited
		case i < 15:
			return models.MoodHappy
		case i < 20:
			return models.MoodStressed
		default:
			return models.MoodGrateful
		}
	}, text: func(m models.Mood, _ int) string {
		return fmt.Sprintf("Lots happening. Feeling %s. Today was about project X.", strings.ToLower(string(m)))
	}},
	"eve": {count: 5, step: 5, mood: func(int) models.Mood { return models.MoodNeutral }, text: func(models.Mood, int) string {
		return "Just checking in. Neutral mood."
	}},
}

func main() {
	password := flag.String("password", "password123", "password assigned to every activated demo account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck
	if err := database.Migrate(db.DB, logr); err != nil {
		logr.Fatal("migrate", zap.Error(err))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		logr.Fatal("hash password", zap.Error(err))
	}

	s := &seeder{
		institutes:  repository.NewInstituteRepository(db),
		users:       repository.NewUserRepository(db),
		journals:    repository.NewJournalRepository(db),
		assignments: repository.NewAssignmentRepository(db),
		hash:        string(hash),
		now:         time.Now().UTC(),
		userIDs:     make(map[string]*models.User),
		assignIDs:   make(map[string]*models.Assignment),
		logger:      logr,
	}
	if err := s.run(context.Background()); err != nil {
		logr.Fatal("seed failed", zap.Error(err))
	}
}

type seeder struct {
	institutes  *repository.InstituteRepository
	users       *repository.UserRepository
	journals    *repository.JournalRepository
	assignments *repository.AssignmentRepository
	hash        string
	now         time.Time
	userIDs     map[string]*models.User
	assignIDs   map[string]*models.Assignment
	logger      *zap.Logger
}

func (s *seeder) run(ctx context.Context) error {
	for _, inst := range institutes {
		if _, err := s.institutes.FindByName(ctx, inst.name); err == nil {
			s.logger.Info("institute already seeded, skipping", zap.String("institute", inst.name))
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("lookup institute %s: %w", inst.name, err)
		}
		if err := s.seedInstitute(ctx, inst); err != nil {
			return err
		}
	}
	for _, sub := range submissions {
		student, assignment := s.userIDs[sub.student], s.assignIDs[sub.assignment]
		if student == nil || assignment == nil {
			continue
		}
		err := s.assignments.CreateSubmission(ctx, &models.Submission{
			AssignmentID:  assignment.ID,
			StudentID:     student.ID,
			InstituteName: student.InstituteName,
			SubmittedAt:   assignment.DueDate.Add(sub.offset),
			Status:        sub.status,
		})
		if err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return fmt.Errorf("seed submission %s/%s: %w", sub.student, sub.assignment, err)
		}
	}
	s.logger.Info("seed complete", zap.Int("users", len(s.userIDs)), zap.Int("assignments", len(s.assignIDs)))
	return nil
}

func (s *seeder) seedInstitute(ctx context.Context, inst seedInstitute) error {
	for _, u := range inst.users {
		user := &models.User{
			Email:           u.email,
			FirstName:       u.first,
			LastName:        u.last,
			Role:            u.role,
			InstituteName:   inst.name,
			IsActivated:     u.activated,
			IsPreRegistered: u.role != models.RoleAdmin,
		}
		if u.activated {
			user.PasswordHash = &s.hash
		}
		var err error
		if u.role == models.RoleAdmin {
			err = s.institutes.CreateWithAdmin(ctx, &models.Institute{Name: inst.name}, user)
		} else {
			err = s.users.Create(ctx, user)
		}
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.email, err)
		}
		s.userIDs[u.key] = user
		if err := s.seedJournal(ctx, u.key, user); err != nil {
			return err
		}
	}

	admin := s.userIDs[inst.users[0].key]
	for _, a := range inst.assignments {
		assignment := &models.Assignment{
			Title:         a.title,
			DueDate:       s.now.Add(a.due),
			InstituteName: inst.name,
			CreatedBy:     admin.ID,
		}
		if err := s.assignments.Create(ctx, assignment); err != nil {
			return fmt.Errorf("seed assignment %q: %w", a.title, err)
		}
		s.assignIDs[a.key] = assignment
	}
	s.logger.Info("institute seeded", zap.String("institute", inst.name), zap.Int("users", len(inst.users)))
	return nil
}

func (s *seeder) seedJournal(ctx context.Context, key string, user *models.User) error {
	plan, ok := journals[key]
	if !ok {
		return nil
	}
	for i := 0; i < plan.count; i++ {
		mood := plan.mood(i)
		entry := &models.JournalEntry{
			UserID: user.ID,
			Date:   s.now.Add(-time.Duration(plan.start+i*plan.step) * day),
			Mood:   mood,
			Text:   plan.text(mood, i),
		}
		if key == "bob" && i%5 == 0 {
			reflection := "It's good you're aware of your feelings."
			entry.AIReflection = &reflection
		}
		if err := s.journals.Create(ctx, entry); err != nil {
			return fmt.Errorf("seed journal for %s: %w", user.Email, err)
		}
	}
	return nil
}
