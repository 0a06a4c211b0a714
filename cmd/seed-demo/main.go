package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stemsi/enroll-web/internal/config"
	"github.com/stemsi/enroll-web/internal/database"
	"github.com/stemsi/enroll-web/internal/logger"
	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository"
	"github.com/stemsi/enroll-web/internal/service"
)

// demoPassword is shared by every seeded student.
const demoPassword = "enrollme"

var demoClasses = []model.CreateClassRequest{
	{Major: "CptS", CourseNum: "121", Title: "Program Design and Development"},
	{Major: "CptS", CourseNum: "322", Title: "Software Engineering Principles I"},
	{Major: "CptS", CourseNum: "355", Title: "Programming Languages"},
	{Major: "CptS", CourseNum: "451", Title: "Introduction to Database Systems"},
	{Major: "EE", CourseNum: "261", Title: "Electrical Circuits I"},
	{Major: "MATH", CourseNum: "216", Title: "Discrete Structures"},
	{Major: "ME", CourseNum: "212", Title: "Dynamics"},
}

var demoNames = []string{
	"Sakire Arslan Ay", "Ada Lovelace", "Alan Turing", "Grace Hopper", "Edsger Dijkstra",
	"Barbara Liskov", "Donald Knuth", "Frances Allen", "John Backus", "Margaret Hamilton",
	"Ken Thompson", "Radia Perlman", "Niklaus Wirth", "Shafi Goldwasser", "Tony Hoare",
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	store := repository.NewStore(pool)
	majorService := service.NewMajorService(store, log)
	classService := service.NewClassService(store)
	studentService := service.NewStudentService(store, cfg.BcryptCost)
	enrollmentService := service.NewEnrollmentService(store, log)

	fmt.Println("=== Seeding demo data ===")

	if _, err := majorService.SeedDefaults(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed majors")
	}

	// Reuse classes that already exist so the seed can run repeatedly.
	existing, err := classService.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list classes")
	}
	byLabel := make(map[string]int, len(existing))
	for _, c := range existing {
		byLabel[c.Label()] = c.ID
	}

	classIDs := make([]int, 0, len(demoClasses))
	for _, req := range demoClasses {
		label := model.Class{Major: req.Major, CourseNum: req.CourseNum}.Label()
		if id, ok := byLabel[label]; ok {
			classIDs = append(classIDs, id)
			continue
		}
		class, err := classService.Create(ctx, req)
		if err != nil {
			log.Fatal().Err(err).Str("class", label).Msg("Failed to create class")
		}
		fmt.Printf("Created class %s (ID: %d)\n", label, class.ID)
		classIDs = append(classIDs, class.ID)
	}

	created, enrolled := 0, 0
	for i, name := range demoNames {
		first, last, _ := strings.Cut(name, " ")
		username := fmt.Sprintf("student%02d", i+1)

		student, err := studentService.Register(ctx, model.RegisterRequest{
			Username:  username,
			Email:     username + "@wsu.edu",
			Password:  demoPassword,
			Password2: demoPassword,
			FirstName: first,
			LastName:  last,
			Address:   "Pullman, WA",
		})
		switch {
		case errors.Is(err, service.ErrUsernameTaken):
			student, err = studentService.GetByUsername(ctx, username)
			if err != nil {
				log.Fatal().Err(err).Str("username", username).Msg("Failed to load student")
			}
		case err != nil:
			fmt.Printf("Error creating student %s: %v\n", username, err)
			continue
		default:
			created++
		}

		// Every student takes three consecutive classes, wrapping around.
		for j := 0; j < 3; j++ {
			classID := classIDs[(i+j)%len(classIDs)]
			ok, err := enrollmentService.Enroll(ctx, student.ID, classID)
			if err != nil {
				fmt.Printf("Error enrolling %s in class %d: %v\n", username, classID, err)
				continue
			}
			if ok {
				enrolled++
			}
		}
	}

	fmt.Printf("\nSeed completed! %d new students, %d new enrollments (password: %s).\n", created, enrolled, demoPassword)
}
