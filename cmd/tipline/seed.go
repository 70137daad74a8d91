package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tipline/internal/record"
)

// seedFile is the YAML layout accepted by the seed command
type seedFile struct {
	Locations []struct {
		Name    string `yaml:"name"`
		Region  string `yaml:"region"`
		Targets []struct {
			Name     string `yaml:"name"`
			Category string `yaml:"category"`
		} `yaml:"targets"`
	} `yaml:"locations"`
	Users []struct {
		Email    string `yaml:"email"`
		Name     string `yaml:"name"`
		Password string `yaml:"password"`
		Role     string `yaml:"role"`
	} `yaml:"users"`
}

var seedCmd = &cobra.Command{
	Use:   "seed <file.yaml>",
	Short: "Load locations, targets and users from a YAML file",
	Long: `Load reference data into the database from a YAML file. The whole file
is applied in one transaction; any failure rolls everything back.`,
	Args: cobra.ExactArgs(1),
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("failed to parse seed file: %w", err)
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.close()

	locations := 0
	targets := 0
	users := 0

	err = a.db.WithTx(func() error {
		now := time.Now().UTC()

		for _, l := range seed.Locations {
			loc := &record.Location{
				Name:      l.Name,
				Region:    l.Region,
				CreatedAt: now,
			}
			if err := a.store.Insert(loc); err != nil {
				return err
			}
			locations++

			for _, t := range l.Targets {
				tgt := &record.Target{
					LocationId: loc.Id,
					Name:       t.Name,
					Category:   t.Category,
					Active:     true,
					CreatedAt:  now,
				}
				if err := a.store.Insert(tgt); err != nil {
					return err
				}
				targets++
			}
		}

		for _, u := range seed.Users {
			role := u.Role
			if role == "" {
				role = record.RoleReviewer
			}
			if _, err := a.authMgr.CreateUser(u.Email, u.Name, u.Password, role); err != nil {
				return fmt.Errorf("user %s: %w", u.Email, err)
			}
			users++
		}

		return nil
	})
	if err != nil {
		return err
	}

	fmt.Printf("Seeded %d locations, %d targets, %d users\n", locations, targets, users)
	return nil
}
