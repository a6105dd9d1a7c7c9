package main

import (
	"context"
	"log"
	"os"

	"schoolpay/internal/database"
	"schoolpay/internal/domain"
	"schoolpay/internal/repository"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	_ = godotenv.Load()

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		databaseURL = "schoolpay.db"
	}

	db, err := database.Connect(databaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	// Cleanup old data (in safe order to avoid foreign key errors)
	log.Println("Cleaning old data...")
	db.Exec("DELETE FROM webhook_deliveries")
	db.Exec("DELETE FROM order_statuses")
	db.Exec("DELETE FROM orders")
	db.Exec("DELETE FROM users")

	log.Println("Creating users...")

	adminHash, _ := bcrypt.GenerateFromPassword([]byte("admin123"), bcrypt.DefaultCost)
	admin := domain.User{
		Email:        "admin@schoolpay.dev",
		PasswordHash: string(adminHash),
		Name:         "Platform Admin",
		Role:         domain.RoleAdmin,
	}
	db.Create(&admin)
	log.Println("Admin created: admin@schoolpay.dev / admin123")

	schoolHash, _ := bcrypt.GenerateFromPassword([]byte("school123"), bcrypt.DefaultCost)
	school := domain.User{
		Email:        "bursar@sunrise.edu",
		PasswordHash: string(schoolHash),
		Name:         "Sunrise Academy Bursar",
		Role:         domain.RoleSchool,
		SchoolID:     "SCH001",
	}
	db.Create(&school)
	log.Println("School user created: bursar@sunrise.edu / school123 (SCH001)")

	log.Println("Creating demo orders...")

	ctx := context.Background()
	orders := repository.NewOrderRepository(db)
	ledger := repository.NewOrderStatusRepository(db)

	demo := []struct {
		customOrderID string
		amount        float64
		student       domain.StudentInfo
		status        domain.PaymentStatus
		transactionID string
	}{
		{"ORD-DEMO-1", 2500, domain.StudentInfo{Name: "Asel Nurlanova", ID: "STU-101", Email: "asel@sunrise.edu"}, domain.StatusCompleted, "TXN-DEMO-1"},
		{"ORD-DEMO-2", 1800, domain.StudentInfo{Name: "Bekzat Omarov", ID: "STU-102", Email: "bekzat@sunrise.edu"}, domain.StatusPending, "TXN-DEMO-2"},
		{"ORD-DEMO-3", 3200, domain.StudentInfo{Name: "Dina Serikova", ID: "STU-103", Email: "dina@sunrise.edu"}, domain.StatusCreated, ""},
	}

	for _, d := range demo {
		order := &domain.Order{
			CustomOrderID: d.customOrderID,
			SchoolID:      "SCH001",
			Student:       d.student,
			GatewayName:   "edviron",
			Amount:        d.amount,
			CallbackURL:   "https://sunrise.edu/payments/callback",
			CachedStatus:  d.status,
		}
		if err := orders.Create(ctx, order); err != nil {
			log.Fatalf("seed order %s failed: %v", d.customOrderID, err)
		}

		if d.transactionID != "" {
			if _, _, err := ledger.Upsert(ctx, order.ID, domain.Observation{
				TransactionID:     d.transactionID,
				Status:            d.status,
				OrderAmount:       d.amount,
				TransactionAmount: d.amount,
				PaymentMode:       "upi",
			}); err != nil {
				log.Fatalf("seed status for %s failed: %v", d.customOrderID, err)
			}
		}
		log.Printf("Order created: %s (%s)", d.customOrderID, d.status)
	}

	log.Println("Seed completed.")
}
