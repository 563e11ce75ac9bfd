package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"seedtools/internal/auth"
	"seedtools/internal/config"
	"seedtools/internal/modelseed"
	"seedtools/internal/workspace"
)

// Colors for modern design
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	surfaceColor   = lipgloss.Color("#1F2937") // Dark gray
	textColor      = lipgloss.Color("#F3F4F6") // Light gray
	mutedColor     = lipgloss.Color("#9CA3AF") // Muted gray
	borderColor    = lipgloss.Color("#374151") // Border gray
)

// Styles
var (
	containerStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)

	titleStyle = lipgloss.NewStyle().
			Foreground(primaryColor).
			Bold(true).
			Align(lipgloss.Center)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Background(surfaceColor).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().Foreground(mutedColor)
	countStyle = lipgloss.NewStyle().Foreground(secondaryColor).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
)

type listItem struct {
	listing modelseed.ModelListing
}

func (i listItem) FilterValue() string {
	return i.listing.ID
}

func (i listItem) Title() string {
	if i.listing.ID != "" {
		return i.listing.ID
	}
	return i.listing.Name
}

func (i listItem) Description() string {
	return fmt.Sprintf("%s    reactions: %s    compounds: %s    genes: %s",
		i.listing.Rundate,
		countStyle.Render(fmt.Sprint(int(i.listing.NumReactions))),
		countStyle.Render(fmt.Sprint(int(i.listing.NumCompounds))),
		countStyle.Render(fmt.Sprint(int(i.listing.NumGenes))))
}

// Messages from the background commands that talk to the service.
type modelsMsg []modelseed.ModelListing

type deletedMsg string

type errMsg struct{ err error }

type browser struct {
	list   list.Model
	client *modelseed.Client

	width    int
	height   int
	showHelp bool
	status   string

	// confirmDelete holds the ID of the model pending deletion, empty when
	// no confirmation is in progress.
	confirmDelete string
}

func newBrowser(client *modelseed.Client) browser {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Metabolic Models"
	l.SetShowStatusBar(false)
	l.SetShowPagination(true)
	l.SetFilteringEnabled(true)

	return browser{
		list:   l,
		client: client,
		status: "loading models...",
	}
}

func (b browser) loadModels() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	models, err := b.client.ListModels(ctx, "rundate")
	if err != nil {
		return errMsg{err}
	}
	return modelsMsg(models)
}

func (b browser) deleteModel(modelID string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if err := b.client.Delete(ctx, modelID); err != nil {
			return errMsg{err}
		}
		return deletedMsg(modelID)
	}
}

func (b browser) Init() tea.Cmd {
	return b.loadModels
}

func (b browser) selected() (modelseed.ModelListing, bool) {
	item := b.list.SelectedItem()
	if item == nil {
		return modelseed.ModelListing{}, false
	}
	return item.(listItem).listing, true
}

func (b browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width = msg.Width
		b.height = msg.Height

		// Left panel takes 1/3 of the width.
		b.list.SetWidth(msg.Width / 3)
		b.list.SetHeight(msg.Height - 4)
		return b, nil

	case modelsMsg:
		items := make([]list.Item, len(msg))
		for i, listing := range msg {
			items[i] = listItem{listing: listing}
		}
		b.list.SetItems(items)
		b.status = fmt.Sprintf("%d models", len(msg))
		return b, nil

	case deletedMsg:
		b.status = fmt.Sprintf("deleted %s", string(msg))
		return b, b.loadModels

	case errMsg:
		b.status = "error: " + msg.err.Error()
		return b, nil

	case tea.KeyMsg:
		// A pending delete only accepts confirm or cancel.
		if b.confirmDelete != "" {
			switch msg.String() {
			case "y":
				modelID := b.confirmDelete
				b.confirmDelete = ""
				b.status = "deleting " + modelID + "..."
				return b, b.deleteModel(modelID)
			default:
				b.confirmDelete = ""
				b.status = "delete canceled"
				return b, nil
			}
		}
		if b.list.FilterState() != list.Filtering {
			switch msg.String() {
			case "ctrl+c", "q":
				return b, tea.Quit

			case "h":
				b.showHelp = !b.showHelp
				return b, nil

			case "r":
				b.status = "refreshing..."
				return b, b.loadModels

			case "d":
				if listing, ok := b.selected(); ok {
					b.confirmDelete = listing.ID
					b.status = fmt.Sprintf("delete %s? (y/n)", listing.ID)
				}
				return b, nil
			}
		}
	}

	var cmd tea.Cmd
	b.list, cmd = b.list.Update(msg)
	return b, cmd
}

func (b browser) View() string {
	if b.width == 0 {
		return "Loading..."
	}
	if b.showHelp {
		return b.renderHelpModal()
	}

	main := lipgloss.JoinHorizontal(
		lipgloss.Top,
		b.renderLeftPanel(),
		b.renderRightPanel(),
	)
	return lipgloss.JoinVertical(
		lipgloss.Left,
		main,
		b.renderStatusBar(),
	)
}

func (b browser) renderLeftPanel() string {
	return containerStyle.
		Width(b.width/3 - 2).
		Height(b.height - 4).
		Render(b.list.View())
}

func (b browser) renderRightPanel() string {
	rightWidth := (b.width * 2) / 3

	listing, ok := b.selected()
	if !ok {
		return containerStyle.
			Width(rightWidth - 2).
			Height(b.height - 4).
			Render("No models available")
	}

	header := titleStyle.Render(fmt.Sprintf("%s - %s", listing.ID, listing.Name))
	lines := buildDetailLines(listing, rightWidth-6)

	panelContent := lipgloss.JoinVertical(
		lipgloss.Left,
		append([]string{header, ""}, lines...)...,
	)
	return containerStyle.
		Width(rightWidth - 2).
		Height(b.height - 4).
		Render(panelContent)
}

// buildDetailLines renders the detail fields of a model listing, wrapping
// the workspace references to the panel width.
func buildDetailLines(listing modelseed.ModelListing, width int) []string {
	if width < 10 {
		width = 10
	}
	var lines []string
	field := func(label, value string) {
		if value == "" {
			value = "-"
		}
		for i, part := range wrapText(value, width-14) {
			if i == 0 {
				lines = append(lines, labelStyle.Render(fmt.Sprintf("%-12s", label))+part)
			} else {
				lines = append(lines, strings.Repeat(" ", 12)+part)
			}
		}
	}
	field("rundate", listing.Rundate)
	field("status", listing.Status)
	field("reference", listing.Ref)
	field("genome", listing.GenomeRef)
	field("template", listing.TemplateRef)
	field("reactions", fmt.Sprint(int(listing.NumReactions)))
	field("compounds", fmt.Sprint(int(listing.NumCompounds)))
	field("genes", fmt.Sprint(int(listing.NumGenes)))
	return lines
}

// wrapText breaks a string into chunks no wider than width.
func wrapText(s string, width int) []string {
	if width < 1 {
		width = 1
	}
	var parts []string
	for len(s) > width {
		parts = append(parts, s[:width])
		s = s[width:]
	}
	return append(parts, s)
}

func (b browser) renderStatusBar() string {
	leftInfo := b.status
	if b.confirmDelete != "" {
		leftInfo = warnStyle.Render(b.status)
	}
	rightInfo := "r refresh • d delete • h help • q quit"

	spacing := b.width - lipgloss.Width(leftInfo) - len(rightInfo) - 4
	var statusContent string
	if spacing > 0 {
		statusContent = leftInfo + strings.Repeat(" ", spacing) + rightInfo
	} else {
		// Fallback for narrow terminals
		statusContent = leftInfo
	}
	return statusBarStyle.
		Width(b.width).
		Render(statusContent)
}

func (b browser) renderHelpModal() string {
	helpContent := `Metabolic Model Browser - Help

Navigation:
  ↑/↓, j/k     Navigate list
  /            Filter models

Actions:
  r            Refresh the model list
  d            Delete the selected model (y confirms)

General:
  h            Toggle this help
  q, Ctrl+C    Quit application
`

	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(primaryColor).
		Padding(1, 2).
		Background(surfaceColor).
		Foreground(textColor).
		Width(60).
		Align(lipgloss.Center)

	return lipgloss.Place(
		b.width,
		b.height,
		lipgloss.Center,
		lipgloss.Center,
		modalStyle.Render(helpContent),
	)
}

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	path, err := auth.TokenFilePath(cfg.TokenFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	creds, err := auth.LoadToken(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: no stored token, run \"seedtools login\" first\n")
		os.Exit(1)
	}
	ws := workspace.NewClient(cfg.WorkspaceURL, creds.Token)
	client := modelseed.NewClient(cfg.ModelSEEDURL, creds.Token, ws)

	p := tea.NewProgram(newBrowser(client), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error: %v", err)
		os.Exit(1)
	}
}
