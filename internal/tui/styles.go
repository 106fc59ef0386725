package tui

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"
)

// Skin is a color palette. Custom skins are YAML files under
// <configDir>/skins/<name>.yml with the same keys.
type Skin struct {
	Name     string `yaml:"name"`
	Accent   string `yaml:"accent"`
	Muted    string `yaml:"muted"`
	Text     string `yaml:"text"`
	Bar      string `yaml:"bar"`
	Good     string `yaml:"good"`
	Warn     string `yaml:"warn"`
	Bad      string `yaml:"bad"`
	Markdown string `yaml:"markdown"` // glamour style name
}

var builtinSkins = map[string]Skin{
	"default": {
		Name: "default", Accent: "39", Muted: "8", Text: "15", Bar: "17",
		Good: "42", Warn: "214", Bad: "196", Markdown: "dark",
	},
	"light": {
		Name: "light", Accent: "25", Muted: "245", Text: "0", Bar: "153",
		Good: "28", Warn: "130", Bad: "160", Markdown: "light",
	},
	"mono": {
		Name: "mono", Accent: "15", Muted: "8", Text: "7", Bar: "0",
		Good: "15", Warn: "7", Bad: "15", Markdown: "notty",
	},
}

var (
	ColorBlue   lipgloss.Color
	ColorGray   lipgloss.Color
	ColorWhite  lipgloss.Color
	ColorNavy   lipgloss.Color
	ColorGreen  lipgloss.Color
	ColorOrange lipgloss.Color
	ColorRed    lipgloss.Color

	sectionStyle       lipgloss.Style
	activeSectionStyle lipgloss.Style
	chartTitleStyle    lipgloss.Style
	helpStyle          lipgloss.Style
	errorStyle         lipgloss.Style
	selectedStyle      lipgloss.Style
	headerStyle        lipgloss.Style

	markdownStyle string
)

func init() {
	applySkin(builtinSkins["default"])
}

// LoadSkin reads a skin file. Missing keys fall back to the default skin.
func LoadSkin(path string) (Skin, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Skin{}, err
	}
	skin := builtinSkins["default"]
	if err := yaml.Unmarshal(data, &skin); err != nil {
		return Skin{}, fmt.Errorf("parse skin %s: %w", path, err)
	}
	return skin, nil
}

// InitializeSkin applies a built-in skin or one from configDir/skins. On
// error the default skin stays active.
func InitializeSkin(name, configDir string) error {
	if name == "" {
		name = "default"
	}
	if skin, ok := builtinSkins[name]; ok {
		applySkin(skin)
		return nil
	}
	skin, err := LoadSkin(filepath.Join(configDir, "skins", name+".yml"))
	if err != nil {
		applySkin(builtinSkins["default"])
		return err
	}
	applySkin(skin)
	return nil
}

func applySkin(s Skin) {
	ColorBlue = lipgloss.Color(s.Accent)
	ColorGray = lipgloss.Color(s.Muted)
	ColorWhite = lipgloss.Color(s.Text)
	ColorNavy = lipgloss.Color(s.Bar)
	ColorGreen = lipgloss.Color(s.Good)
	ColorOrange = lipgloss.Color(s.Warn)
	ColorRed = lipgloss.Color(s.Bad)
	markdownStyle = s.Markdown

	sectionStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorGray).
		Padding(0, 1)
	activeSectionStyle = sectionStyle.BorderForeground(ColorBlue)
	chartTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorBlue)
	helpStyle = lipgloss.NewStyle().Foreground(ColorGray).Italic(true)
	errorStyle = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	selectedStyle = lipgloss.NewStyle().Foreground(ColorBlue).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(ColorWhite).Bold(true).Underline(true)
}
