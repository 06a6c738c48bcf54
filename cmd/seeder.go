package cmd

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, db, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		if clearData {
			for _, table := range []string{"payments", "purchases", "requests", "category_levels", "course_categories", "levels", "categories", "courses", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []struct {
			Email string
			Name  string
			Phone string
		}{
			{"vasya@mail.com", "Vasya", "+79990000001"},
			{"admin@mail.com", "Admin", "+79990000002"},
		}

		for _, u := range users {
			var exists int
			if err := db.Raw("SELECT 1 FROM users WHERE email = ?", u.Email).Row().Scan(&exists); err == nil {
				fmt.Println("user already exists:", u.Email)
				continue
			}
			if err := db.Exec("INSERT INTO users (email, name, phone, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, true, now(), now())",
				u.Email, u.Name, u.Phone, string(hash)).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email)
		}

		courses := []struct {
			Name       string
			Desc       string
			Categories []struct {
				Name     string
				Price    string
				Duration int
				Levels   []string
			}
		}{
			{
				Name: "English",
				Desc: "General English course",
				Categories: []struct {
					Name     string
					Price    string
					Duration int
					Levels   []string
				}{
					{"Group", "12000.00", 3, []string{"Beginner", "Intermediate", "Advanced"}},
					{"Individual", "28000.00", 3, []string{"Beginner", "Intermediate", "Advanced"}},
				},
			},
			{
				Name: "Mathematics",
				Desc: "Exam preparation in mathematics",
				Categories: []struct {
					Name     string
					Price    string
					Duration int
					Levels   []string
				}{
					{"Group", "9000.00", 6, []string{"Basic", "Profile"}},
				},
			},
		}

		for _, c := range courses {
			var courseID int64
			if err := db.Raw("SELECT id FROM courses WHERE name = ?", c.Name).Row().Scan(&courseID); err != nil {
				if err := db.Exec("INSERT INTO courses (name, description, is_active, created_at, updated_at) VALUES (?, ?, true, now(), now())",
					c.Name, c.Desc).Error; err != nil {
					log.Fatalf("failed to insert course %s: %v", c.Name, err)
				}
				if err := db.Raw("SELECT id FROM courses WHERE name = ?", c.Name).Row().Scan(&courseID); err != nil {
					log.Fatalf("course not found after insert %s: %v", c.Name, err)
				}
				fmt.Println("Seeded course:", c.Name)
			}

			for _, cat := range c.Categories {
				var categoryID int64
				catName := c.Name + " " + cat.Name
				if err := db.Raw("SELECT id FROM categories WHERE name = ?", catName).Row().Scan(&categoryID); err != nil {
					if err := db.Exec("INSERT INTO categories (name, price, duration_months, created_at, updated_at) VALUES (?, ?, ?, now(), now())",
						catName, cat.Price, cat.Duration).Error; err != nil {
						log.Fatalf("failed to insert category %s: %v", catName, err)
					}
					if err := db.Raw("SELECT id FROM categories WHERE name = ?", catName).Row().Scan(&categoryID); err != nil {
						log.Fatalf("category not found after insert %s: %v", catName, err)
					}
				}

				var linked int
				if err := db.Raw("SELECT 1 FROM course_categories WHERE course_id = ? AND category_id = ?", courseID, categoryID).Row().Scan(&linked); err != nil {
					if err := db.Exec("INSERT INTO course_categories (course_id, category_id) VALUES (?, ?)", courseID, categoryID).Error; err != nil {
						log.Fatalf("failed to link category %s: %v", catName, err)
					}
				}

				for _, levelName := range cat.Levels {
					var levelID int64
					if err := db.Raw("SELECT id FROM levels WHERE name = ?", levelName).Row().Scan(&levelID); err != nil {
						if err := db.Exec("INSERT INTO levels (name, created_at, updated_at) VALUES (?, now(), now())", levelName).Error; err != nil {
							log.Fatalf("failed to insert level %s: %v", levelName, err)
						}
						if err := db.Raw("SELECT id FROM levels WHERE name = ?", levelName).Row().Scan(&levelID); err != nil {
							log.Fatalf("level not found after insert %s: %v", levelName, err)
						}
					}

					var linked int
					if err := db.Raw("SELECT 1 FROM category_levels WHERE category_id = ? AND level_id = ?", categoryID, levelID).Row().Scan(&linked); err != nil {
						if err := db.Exec("INSERT INTO category_levels (category_id, level_id) VALUES (?, ?)", categoryID, levelID).Error; err != nil {
							log.Fatalf("failed to link level %s: %v", levelName, err)
						}
					}
				}
			}
		}

		fmt.Println("Catalog seeded successfully")
	},
}
