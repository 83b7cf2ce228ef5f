package views

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"placetap/internal/engine/codec"
	"placetap/internal/engine/fetch"
	"placetap/internal/engine/places"
	"placetap/internal/model"
	"placetap/internal/tui/styles"
)

// sharedState holds data shared between the fetch goroutine and the TUI.
// Lives behind a pointer so it survives bubbletea's value copies.
type sharedState struct {
	mu        sync.Mutex
	label     string
	collected int
	records   []model.BusinessRecord
	seen      map[string]struct{}
	pageToken string
	worker    *fetch.Worker
	cancel    context.CancelFunc
	running   bool
}

// ProgressModel runs and displays a fetch session.
type ProgressModel struct {
	params      StartFetchMsg
	progress    progress.Model
	startTime   time.Time
	done        bool
	hasMore     bool
	confirmQuit bool
	err         error
	logPath     string
	width       int
	height      int
	shared      *sharedState
}

// Messages
type progressTickMsg time.Time

type fetchCompleteMsg struct {
	Err     error
	HasMore bool
}

func NewProgressModel(msg StartFetchMsg) ProgressModel {
	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
	)

	m := ProgressModel{
		params:    msg,
		progress:  p,
		startTime: time.Now(),
		shared: &sharedState{
			seen: make(map[string]struct{}),
		},
	}
	m.logPath = strings.TrimSuffix(msg.Output, filepath.Ext(msg.Output)) + ".log"

	return m
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(
		m.startFetch(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

// startFetch runs pipeline invocations until the target is reached, the
// search is exhausted, or a stop is requested. Accepted batches are merged
// into the shared state and appended to the seed file as they arrive.
func (m ProgressModel) startFetch() tea.Cmd {
	shared := m.shared
	params := m.params
	logPath := m.logPath

	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		shared.mu.Lock()
		shared.cancel = cancel
		shared.running = true
		token := shared.pageToken
		records := shared.records
		seen := shared.seen
		firstRun := records == nil && len(seen) == 0
		shared.mu.Unlock()

		// Seed state on the first invocation only; fetch-more resumes
		// from the shared copies.
		if firstRun && params.Seed != "" {
			var err error
			records, seen, err = codec.Load(params.Seed)
			if err != nil {
				return fetchCompleteMsg{Err: fmt.Errorf("loading seed file: %w", err)}
			}
		}
		if seen == nil {
			seen = make(map[string]struct{})
		}

		logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fetchCompleteMsg{Err: err}
		}
		defer logFile.Close()
		logger := log.New(logFile, "", log.LstdFlags)
		logger.Printf("=== Fetch: query=%q target=%d seed=%q output=%q ===",
			params.Query, params.Target, params.Seed, params.Output)

		client := places.NewClient(params.APIKey, "en")

		var runErr error
		hasMore := false
		for {
			var invErr error
			invMore := false

			worker := fetch.New(client, fetch.Params{
				Query:     params.Query,
				Target:    params.Target,
				PageToken: token,
			}, seen, records, logger, fetch.Callbacks{
				OnBatch: func(batch []model.BusinessRecord) {
					records = append(records, batch...)
					for _, r := range batch {
						seen[r.GMapsURL] = struct{}{}
					}
					if params.Seed != "" {
						if err := codec.Append(batch, params.Seed); err != nil {
							logger.Printf("APPEND_ERROR file=%s err=%v", params.Seed, err)
						}
					}
				},
				OnProgress: func(label string, fetched int) {
					shared.mu.Lock()
					shared.label = label
					if fetched > shared.collected {
						shared.collected = fetched
					}
					shared.mu.Unlock()
				},
				OnError: func(msg string) {
					invErr = fmt.Errorf("%s", msg)
				},
				OnDone: func(more, success bool) {
					invMore = more
					if !success && invErr == nil {
						invErr = fmt.Errorf("fetch failed")
					}
				},
			})

			shared.mu.Lock()
			shared.worker = worker
			stopped := !shared.running
			shared.mu.Unlock()
			if stopped {
				break
			}

			worker.Run(ctx)

			shared.mu.Lock()
			shared.records = records
			shared.collected = len(records)
			shared.pageToken = worker.NextPageToken()
			shared.worker = nil
			stopped = !shared.running
			shared.mu.Unlock()

			if invErr != nil {
				runErr = invErr
				break
			}
			if !invMore || len(records) >= params.Target || stopped {
				hasMore = invMore && len(records) < params.Target
				break
			}
			token = worker.NextPageToken()
		}

		shared.mu.Lock()
		shared.running = false
		shared.seen = seen
		shared.mu.Unlock()

		if runErr == nil {
			if err := codec.Save(records, params.Output); err != nil {
				runErr = fmt.Errorf("writing output: %w", err)
			} else {
				logger.Printf("Saved %d listings to %s", len(records), params.Output)
			}
		} else {
			logger.Printf("ERROR %v", runErr)
		}

		return fetchCompleteMsg{Err: runErr, HasMore: hasMore}
	}
}

// requestStop asks the in-flight worker to stop after the current entry.
func (m ProgressModel) requestStop() {
	s := m.shared
	s.mu.Lock()
	s.running = false
	w := s.worker
	s.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.requestStop()
			if cancel := m.shared.getCancel(); cancel != nil {
				cancel()
			}
			return m, tea.Quit
		case "esc":
			if m.done {
				return m, func() tea.Msg {
					return NavigateToExplorer{Path: m.params.Output}
				}
			}
			if m.confirmQuit {
				// Second esc: stop and go home
				m.requestStop()
				return m, func() tea.Msg { return NavigateToHome{} }
			}
			// First esc: show confirmation
			m.confirmQuit = true
			return m, nil
		case "f":
			if m.done && m.err == nil && m.hasMore {
				// Fetch more: resume with the retained continuation token
				m.done = false
				m.hasMore = false
				return m, tea.Batch(m.startFetch(), tickCmd())
			}
		case "enter":
			if m.done {
				return m, func() tea.Msg {
					return NavigateToExplorer{Path: m.params.Output}
				}
			}
			if m.confirmQuit {
				m.confirmQuit = false
				return m, nil
			}
		}
		// Any other key cancels the confirmation
		if m.confirmQuit {
			m.confirmQuit = false
		}
	case progressTickMsg:
		if m.done {
			return m, nil
		}
		return m, tickCmd()
	case fetchCompleteMsg:
		m.done = true
		m.err = msg.Err
		m.hasMore = msg.HasMore
		return m, nil
	}

	var cmd tea.Cmd
	var pModel tea.Model
	pModel, cmd = m.progress.Update(msg)
	m.progress = pModel.(progress.Model)
	return m, cmd
}

func (m ProgressModel) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render(fmt.Sprintf("Fetching: %q", m.params.Query)))
	b.WriteString("\n\n")

	// Stats
	statsBox := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(styles.Muted).
		Padding(0, 1).
		Width(30).
		Render(m.renderStats())
	b.WriteString(statsBox)
	b.WriteString("\n\n")

	// Progress bar
	collected := m.shared.getCollected()
	var pct float64
	if m.params.Target > 0 {
		pct = float64(collected) / float64(m.params.Target)
		if pct > 1 {
			pct = 1
		}
	}
	b.WriteString(m.progress.ViewAs(pct))
	b.WriteString("\n\n")

	// Status
	if m.done {
		if m.err != nil {
			b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
			b.WriteString("\n\n")
			b.WriteString(styles.StatusBar.Render("esc back"))
		} else {
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Success).Bold(true).
				Render(fmt.Sprintf("Complete! %d listings saved", collected)))
			b.WriteString("\n")
			b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).
				Render(fmt.Sprintf("Output: %s", m.params.Output)))
			b.WriteString("\n\n")
			if m.hasMore {
				b.WriteString(styles.StatusBar.Render("enter explore results • f fetch more • esc back"))
			} else {
				b.WriteString(styles.StatusBar.Render("enter explore results • esc back"))
			}
		}
	} else if m.confirmQuit {
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop the fetch and go back"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
	} else {
		b.WriteString(styles.StatusBar.Render("esc cancel • ctrl+c quit"))
	}

	return b.String()
}

func (m ProgressModel) renderStats() string {
	var sb strings.Builder
	elapsed := time.Since(m.startTime).Truncate(time.Second)

	m.shared.mu.Lock()
	collected := m.shared.collected
	label := m.shared.label
	m.shared.mu.Unlock()

	statLabel := lipgloss.NewStyle().Foreground(styles.Muted).Width(12)
	statVal := lipgloss.NewStyle().Foreground(styles.Text).Bold(true)

	row := func(label string, value string) {
		sb.WriteString(statLabel.Render(label))
		sb.WriteString(statVal.Render(value))
		sb.WriteString("\n")
	}

	row("Collected:", fmt.Sprintf("%d/%d", collected, m.params.Target))
	if label != "" {
		row("Status:", label)
	}
	row("Elapsed:", elapsed.String())

	return sb.String()
}

func (s *sharedState) getCancel() context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel
}

func (s *sharedState) getCollected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collected
}

// NavigateToExplorer signals transition to explorer view.
type NavigateToExplorer struct {
	Path string
}
