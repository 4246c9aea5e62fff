package chatflow

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
)

// AudioPrefix marks a terminal line that answers with an audio URL instead of text.
const AudioPrefix = "audio:"

// Runner drives one conversation over line-oriented IO.
// This allows for easy testing and integration with different frontends (CLI, TUI, etc).
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Headless bool
	Renderer ContentRenderer

	// JSON switches to JSON-Lines: every pass is written as one JSONTurn and
	// every input line is an Inbound object, a JSON string or plain text.
	// JSON implies Headless.
	JSON bool
}

// JSONTurn is the line written after each pass in JSON mode.
type JSONTurn struct {
	SessionID string                `json:"session_id"`
	Status    domain.SessionStatus  `json:"status"`
	Items     []domain.DeliveryItem `json:"items"`
	Failure   string                `json:"failure,omitempty"`
}

// ContentRenderer transforms text deliveries before they are printed.
// This allows for TUI rendering (markdown to ANSI) without coupling the core package.
type ContentRenderer func(string) (string, error)

// Run starts templateID and alternates between printing deliveries and reading
// answers until the session completes, fails or the input ends.
func (r *Runner) Run(ctx context.Context, engine *Engine, templateID string, vars map[string]any) (*domain.Session, error) {
	if r.Input == nil {
		return nil, errors.New("input reader must be set (use os.Stdin)")
	}
	if r.Output == nil {
		return nil, errors.New("output writer must be set (use os.Stdout)")
	}
	lines := bufio.NewReader(r.Input)
	headless := r.Headless || r.JSON

	if !headless {
		fmt.Fprintf(r.Output, "--- chatflow: %s ---\n", templateID)
	}

	res, err := engine.Start(ctx, templateID, vars)
	if err != nil {
		return nil, err
	}

	for {
		if err := r.emit(res); err != nil {
			return nil, err
		}

		if res.Status != domain.StatusWaitingForInput {
			break
		}

		if !headless {
			fmt.Fprint(r.Output, "> ")
		}
		text, err := lines.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || text == "") {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("input error: %w", err)
		}
		text = strings.TrimSpace(text)

		if text == "exit" || text == "quit" {
			if !headless {
				fmt.Fprintln(r.Output, "Bye!")
			}
			break
		}

		in := parseInbound(text)
		if r.JSON {
			in = parseJSONInbound(text)
		}
		res, err = engine.Resume(ctx, res.SessionID, in)
		if err != nil {
			return nil, err
		}
	}

	return engine.Session(ctx, res.SessionID)
}

func (r *Runner) emit(res *Result) error {
	if !r.JSON {
		r.print(res)
		return nil
	}
	turn := JSONTurn{SessionID: res.SessionID, Status: res.Status, Items: res.Items}
	if res.Failure != nil {
		turn.Failure = res.Failure.Error()
	}
	return json.NewEncoder(r.Output).Encode(turn)
}

func (r *Runner) print(res *Result) {
	for _, item := range res.Items {
		switch item.Kind {
		case domain.DeliveryAudio:
			fmt.Fprintf(r.Output, "[audio] %s\n", item.Audio.URL)
		default:
			out := item.Text
			if r.Renderer != nil {
				if rendered, err := r.Renderer(out); err == nil {
					out = rendered
				}
			}
			fmt.Fprintln(r.Output, strings.TrimSpace(out))
		}
	}

	if res.Failure == nil {
		return
	}
	var rejected *domain.InputValidationError
	if errors.As(res.Failure, &rejected) {
		fmt.Fprintf(r.Output, "! %s\n", rejected.Reason)
		return
	}
	fmt.Fprintf(r.Output, "! %v\n", res.Failure)
}

func parseInbound(line string) domain.Inbound {
	if url, ok := strings.CutPrefix(line, AudioPrefix); ok {
		return domain.AudioInput(domain.AudioRef{URL: strings.TrimSpace(url)})
	}
	return domain.TextInput(line)
}

// parseJSONInbound accepts an Inbound object, a JSON string or raw text.
func parseJSONInbound(line string) domain.Inbound {
	if strings.HasPrefix(line, "{") {
		var in domain.Inbound
		if err := json.Unmarshal([]byte(line), &in); err == nil {
			return in
		}
	}
	var val string
	if err := json.Unmarshal([]byte(line), &val); err == nil {
		return domain.TextInput(val)
	}
	return domain.TextInput(line)
}
