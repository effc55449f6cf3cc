// cmd/seeder/main.go
package main

import (
	"encoding/json"
	"log"

	"github.com/joho/godotenv"

	"github.com/relaytide/campaign-platform/internal/config"
	"github.com/relaytide/campaign-platform/internal/db"
	"github.com/relaytide/campaign-platform/internal/model"
	"github.com/relaytide/campaign-platform/internal/store"
)

// seeds a handful of recipients, a template, an all-opt-in segment, and a
// DRAFT campaign, enough to exercise Trigger end-to-end against a fresh
// database.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ No .env file found, relying on OS environment variables")
	}

	cfg := config.Load()
	db.Init(cfg)
	s := store.New(db.DB)

	recipients := []struct {
		e164  string
		attrs map[string]interface{}
	}{
		{"+14155550100", map[string]interface{}{"first_name": "Amara", "timezone": "America/Los_Angeles"}},
		{"+14155550101", map[string]interface{}{"first_name": "Boris", "timezone": "America/New_York"}},
		{"+14155550102", map[string]interface{}{"first_name": "Chika", "timezone": "Africa/Lagos"}},
	}
	for _, r := range recipients {
		if err := s.UpsertRecipient(r.e164, r.attrs, model.ConsentOptIn); err != nil {
			log.Fatalf("seed recipient %s: %v", r.e164, err)
		}
	}
	log.Printf("seeded %d recipients", len(recipients))

	tmpl := &model.Template{
		Name:      "welcome",
		Channel:   "sms",
		Locale:    "en-US",
		Content:   "Hi {first_name}, welcome aboard!",
		Variables: []string{"first_name"},
	}
	if err := s.CreateTemplate(tmpl); err != nil {
		log.Fatalf("seed template: %v", err)
	}
	log.Printf("seeded template %d", tmpl.ID)

	ruleTree, _ := json.Marshal(map[string]interface{}{
		"attribute": "consent_state",
		"operator":  "equals",
		"value":     "OPT_IN",
	})
	seg := &model.Segment{Name: "all opted-in", RuleTree: ruleTree}
	if err := s.CreateSegment(seg); err != nil {
		log.Fatalf("seed segment: %v", err)
	}
	log.Printf("seeded segment %d", seg.ID)

	campaign := &model.Campaign{
		Topic:           "welcome-blast",
		TemplateID:      tmpl.ID,
		SegmentID:       seg.ID,
		RateLimitPerSec: 5,
		QuietHoursStart: "21:00",
		QuietHoursEnd:   "08:00",
		QuietHoursTZ:    "America/New_York",
	}
	if err := s.CreateCampaign(campaign); err != nil {
		log.Fatalf("seed campaign: %v", err)
	}
	log.Printf("seeded campaign %d in status %s", campaign.ID, campaign.Status)

	log.Println("database seeding completed successfully")
}
