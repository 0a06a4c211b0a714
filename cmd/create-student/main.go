package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"syscall"

	"github.com/stemsi/enroll-web/internal/config"
	"github.com/stemsi/enroll-web/internal/database"
	"github.com/stemsi/enroll-web/internal/logger"
	"github.com/stemsi/enroll-web/internal/model"
	"github.com/stemsi/enroll-web/internal/repository"
	"github.com/stemsi/enroll-web/internal/service"
	"github.com/stemsi/enroll-web/internal/validator"
	"golang.org/x/term"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Initialize Service ────────────────────────────────────────────
	studentService := service.NewStudentService(repository.NewStore(pool), cfg.BcryptCost)

	// ─── CLI Input ─────────────────────────────────────────────────────
	reader := bufio.NewReader(os.Stdin)
	prompt := func(label string) string {
		fmt.Print(label)
		v, _ := reader.ReadString('\n')
		return strings.TrimSpace(v)
	}

	fmt.Println("=== Create New Student ===")

	req := model.RegisterRequest{
		Username: prompt("Enter Username: "),
	}
	if req.Username == "" {
		fmt.Println("Error: Username is required")
		return
	}
	req.Email = prompt("Enter Email: ")
	if req.Email == "" {
		fmt.Println("Error: Email is required")
		return
	}
	req.FirstName = prompt("Enter First Name: ")
	req.LastName = prompt("Enter Last Name: ")
	req.Address = prompt("Enter Address: ")

	// Password
	fmt.Print("Enter Password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		fmt.Println("\nError reading password")
		return
	}
	fmt.Println() // Newline after password input
	req.Password = string(bytePassword)
	req.Password2 = req.Password

	// Same rules as the /register form.
	if fields := validator.Validate(&req); fields != nil {
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("Error: %s\n", fields[name])
		}
		return
	}

	// ─── Logic ─────────────────────────────────────────────────────────
	student, err := studentService.Register(ctx, req)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			fmt.Printf("Error: username '%s' is already taken\n", req.Username)
			return
		}
		log.Fatal().Err(err).Msg("Failed to create student")
	}

	fmt.Printf("\nSuccess! Student '%s' (%s) created with ID: %d\n", student.Username, student.FullName(), student.ID)
}
