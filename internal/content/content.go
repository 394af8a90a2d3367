// Package content loads the static copy, menu labels and media paths of the bot.
package content

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed content.yaml
var defaultContent []byte

// Texts are the messages the bot sends. Some are fmt templates.
type Texts struct {
	MainMenu             string `yaml:"main_menu" validate:"required"`
	Cancel               string `yaml:"cancel" validate:"required"`
	Back                 string `yaml:"back" validate:"required"`
	Unknown              string `yaml:"unknown" validate:"required"`
	Unsupported          string `yaml:"unsupported" validate:"required"`
	AlreadyBooked        string `yaml:"already_booked" validate:"required"`
	SoldOutAll           string `yaml:"sold_out_all" validate:"required"`
	ToursIntro           string `yaml:"tours_intro" validate:"required"`
	ChooseTour           string `yaml:"choose_tour" validate:"required"`
	TourSoldOut          string `yaml:"tour_sold_out" validate:"required"`
	SignUp               string `yaml:"sign_up" validate:"required"`
	BackButton           string `yaml:"back_button" validate:"required"`
	FormIntro            string `yaml:"form_intro" validate:"required"`
	AskName              string `yaml:"ask_name" validate:"required"`
	AskPhone             string `yaml:"ask_phone" validate:"required"`
	AskPassport          string `yaml:"ask_passport" validate:"required"`
	BookingConfirmed     string `yaml:"booking_confirmed" validate:"required"`
	InputTooLong         string `yaml:"input_too_long" validate:"required"`
	PassportSaved        string `yaml:"passport_saved" validate:"required"`
	QuestionPrompt       string `yaml:"question_prompt" validate:"required"`
	QuestionForward      string `yaml:"question_forward" validate:"required"`
	QuestionAccepted     string `yaml:"question_accepted" validate:"required"`
	ModeratorAnswered    string `yaml:"moderator_answered" validate:"required"`
	ModeratorFollowUp    string `yaml:"moderator_follow_up" validate:"required"`
	AskFullName          string `yaml:"ask_full_name" validate:"required"`
	ResidenceHeader      string `yaml:"residence_header" validate:"required"`
	ResidenceNotFound    string `yaml:"residence_not_found" validate:"required"`
	ResidenceEmpty       string `yaml:"residence_empty" validate:"required"`
	TransferNotFound     string `yaml:"transfer_not_found" validate:"required"`
	TransferRecord       string `yaml:"transfer_record" validate:"required"`
	ServiceUnavailable   string `yaml:"service_unavailable" validate:"required"`
	NotifyChooseTour     string `yaml:"notify_choose_tour" validate:"required"`
	NotifyChooseFromList string `yaml:"notify_choose_from_list" validate:"required"`
	NotifyText           string `yaml:"notify_text" validate:"required"`
	NotifyDone           string `yaml:"notify_done" validate:"required"`
	SendNone             string `yaml:"send_none" validate:"required"`
	SendUsage            string `yaml:"send_usage" validate:"required"`
	ExportCaption        string `yaml:"export_caption" validate:"required"`
}

// Buttons are the labels of the main menu.
type Buttons struct {
	Residence          string `yaml:"residence" validate:"required"`
	Checklist          string `yaml:"checklist" validate:"required"`
	Tour               string `yaml:"tour" validate:"required"`
	Contacts           string `yaml:"contacts" validate:"required"`
	Question           string `yaml:"question" validate:"required"`
	QuestionPreRelease string `yaml:"question_pre_release"`
}

// Media is a file sent with a caption.
type Media struct {
	File    string `yaml:"file"`
	Caption string `yaml:"caption"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

// Section is one timing or transfer day. Lookup sections ask for a name instead of showing Text.
type Section struct {
	Label  string `yaml:"label" validate:"required"`
	Text   string `yaml:"text" validate:"required_without=Lookup"`
	Lookup bool   `yaml:"lookup"`
}

// Content is the full static copy of the bot.
type Content struct {
	Texts      Texts     `yaml:"texts"`
	Buttons    Buttons   `yaml:"buttons"`
	Invitation Media     `yaml:"invitation"`
	Checklist  Media     `yaml:"checklist"`
	Timings    []Section `yaml:"timings" validate:"dive"`
	Transfers  []Section `yaml:"transfers" validate:"dive"`
	Contacts   string    `yaml:"contacts" validate:"required"`
}

// Default returns the embedded content.
func Default() (*Content, error) {
	return Parse(defaultContent)
}

// Load reads content from path, or the embedded default when path is empty.
func Load(path string) (*Content, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read content %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes and validates YAML content.
func Parse(raw []byte) (*Content, error) {
	var c Content
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode content: %w", err)
	}
	if err := validator.New().Struct(&c); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	if c.Buttons.QuestionPreRelease == "" {
		c.Buttons.QuestionPreRelease = c.Buttons.Question
	}
	return &c, nil
}

// Timing returns the n-th timing section, counting from 1.
func (c *Content) Timing(n int) (Section, bool) {
	return section(c.Timings, n)
}

// Transfer returns the n-th transfer section, counting from 1.
func (c *Content) Transfer(n int) (Section, bool) {
	return section(c.Transfers, n)
}

func section(list []Section, n int) (Section, bool) {
	if n < 1 || n > len(list) {
		return Section{}, false
	}
	return list[n-1], true
}
