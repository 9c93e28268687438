package tui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/Veraticus/smart-finance/internal/cli"
	"github.com/Veraticus/smart-finance/internal/ledger"
	"github.com/Veraticus/smart-finance/internal/model"
	"github.com/Veraticus/smart-finance/internal/report"
	"github.com/Veraticus/smart-finance/internal/tui/themes"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Tab is one page of the dashboard.
type Tab int

// Dashboard tabs.
const (
	TabOverview Tab = iota
	TabRecords
	TabCategories
	TabTrend
)

var tabNames = []string{"Overview", "Records", "Categories", "Monthly"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return "Tab(" + strconv.Itoa(int(t)) + ")"
}

// filterCycle is the order the filter key steps through; "" shows all types.
var filterCycle = []model.RecordType{"", model.TypeIncome, model.TypeExpense, model.TypeInvestment}

// recordDeletedMsg carries the outcome of a delete to the status line.
type recordDeletedMsg struct {
	err    error
	record model.Record
}

// Model holds the dashboard state.
type Model struct {
	ctx          context.Context
	theme        themes.Theme
	ledger       *ledger.Ledger
	status       string
	currency     string
	filter       model.RecordType
	records      []model.Record
	summary      report.Summary
	table        table.Model
	help         help.Model
	keymap       KeyMap
	pendingID    int64
	width        int
	height       int
	tab          Tab
	confirming   bool
	statusFailed bool
	quitting     bool
}

// newModel creates a dashboard over l.
func newModel(ctx context.Context, l *ledger.Ledger, cfg Config) Model {
	t := table.New(
		table.WithColumns(recordColumns(cfg.Width)),
		table.WithFocused(true),
		table.WithHeight(tableHeight(cfg.Height)),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(cfg.Theme.Border).
		BorderBottom(true).
		Bold(true)
	s.Selected = cfg.Theme.Selected
	t.SetStyles(s)

	m := Model{
		ctx:      ctx,
		theme:    cfg.Theme,
		ledger:   l,
		currency: cfg.Currency,
		table:    t,
		help:     help.New(),
		keymap:   DefaultKeyMap(),
		width:    cfg.Width,
		height:   cfg.Height,
	}
	if err := l.Warning(); err != nil {
		m.setStatus(fmt.Sprintf("Records could not be loaded: %v", err), true)
	}
	m.refresh()
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.table.SetColumns(recordColumns(msg.Width))
		m.table.SetHeight(tableHeight(msg.Height))
		return m, nil

	case recordDeletedMsg:
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Delete failed: %v", msg.err), true)
		} else {
			m.setStatus(fmt.Sprintf("Deleted %s record #%d", msg.record.Type, msg.record.ID), false)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirming {
		m.confirming = false
		if key.Matches(msg, m.keymap.Confirm) {
			cmd := m.deleteRecord(m.pendingID)
			return m, cmd
		}
		m.setStatus("Delete canceled", false)
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keymap.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keymap.NextTab):
		m.tab = (m.tab + 1) % Tab(len(tabNames))
		return m, nil

	case key.Matches(msg, m.keymap.PrevTab):
		m.tab = (m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames))
		return m, nil
	}

	if m.tab != TabRecords {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keymap.Filter):
		m.filter = nextFilter(m.filter)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keymap.Delete):
		rec, ok := m.selected()
		if !ok {
			return m, nil
		}
		m.confirming = true
		m.pendingID = rec.ID
		m.setStatus(fmt.Sprintf("Delete %s #%d (%s)? y/n", rec.Type, rec.ID, report.FormatAmount(rec.Amount, m.currency)), false)
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// deleteRecord removes the record by ID so a stale selection cannot delete a
// different record. The ledger is only touched from Update.
func (m *Model) deleteRecord(id int64) tea.Cmd {
	rec, err := m.ledger.Remove(m.ctx, id)
	m.refresh()
	return func() tea.Msg {
		return recordDeletedMsg{record: rec, err: err}
	}
}

// refresh recomputes the summary and the visible rows from the ledger.
func (m *Model) refresh() {
	all := m.ledger.Records()
	m.summary = report.Summarize(all)
	m.records = m.ledger.Filter(ledger.Filter{Type: m.filter})

	rows := make([]table.Row, 0, len(m.records))
	for _, r := range m.records {
		rows = append(rows, table.Row{
			strconv.FormatInt(r.ID, 10),
			cli.DisplayDate(r),
			string(r.Type),
			r.Category,
			report.FormatAmount(r.Amount, m.currency),
			r.Note,
		})
	}
	m.table.SetRows(rows)
	if m.table.Cursor() >= len(rows) {
		m.table.SetCursor(max(len(rows)-1, 0))
	}
}

func (m Model) selected() (model.Record, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.records) {
		return model.Record{}, false
	}
	return m.records[i], true
}

func (m *Model) setStatus(text string, failed bool) {
	m.status = text
	m.statusFailed = failed
}

func nextFilter(current model.RecordType) model.RecordType {
	for i, t := range filterCycle {
		if t == current {
			return filterCycle[(i+1)%len(filterCycle)]
		}
	}
	return ""
}

func recordColumns(width int) []table.Column {
	note := max(width-80, 10)
	return []table.Column{
		{Title: "ID", Width: 6},
		{Title: "Date", Width: 13},
		{Title: "Type", Width: 11},
		{Title: "Category", Width: 18},
		{Title: "Amount", Width: 16},
		{Title: "Note", Width: note},
	}
}

// tableHeaderLines is the bordered header row the table draws above its rows.
const tableHeaderLines = 2

// tableHeight is the height of the whole table block, header included,
// leaving room for the tab bar, status line and help.
func tableHeight(height int) int {
	return max(height-8, 3+tableHeaderLines)
}
