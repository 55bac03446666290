package sentiment

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/acolella/voxpop/config"
	"github.com/acolella/voxpop/log"
	"github.com/acolella/voxpop/model"
)

// Analyzer transcribes voice feedback, classifies sentiment and themes,
// and maintains per-day theme summaries. One run is in flight at a time;
// triggering while busy is reported to the caller instead of queueing.
type Analyzer struct {
	db     *sql.DB
	client *openai.Client
	model  string
	sem    chan struct{}
}

func NewAnalyzer(db *sql.DB, cfg config.Config) *Analyzer {
	a := &Analyzer{
		db:    db,
		model: cfg.OpenAIModel,
		sem:   make(chan struct{}, 1),
	}
	if cfg.OpenAIKey != "" {
		c := openai.DefaultConfig(cfg.OpenAIKey)
		if cfg.OpenAIBaseURL != "" {
			c.BaseURL = cfg.OpenAIBaseURL
		}
		a.client = openai.NewClientWithConfig(c)
	}
	return a
}

// Enabled reports whether an analysis provider is configured.
func (a *Analyzer) Enabled() bool {
	return a.client != nil
}

// TryRun starts one background analysis run. It reports false when a run
// is already in flight.
func (a *Analyzer) TryRun(ctx context.Context) bool {
	select {
	case a.sem <- struct{}{}:
	default:
		return false
	}

	go func() {
		defer func() { <-a.sem }()
		if err := a.run(ctx); err != nil {
			log.Errorf("sentiment.run: %s", err)
		}
	}()
	return true
}

// RunEvery triggers analysis on a fixed interval until ctx is cancelled.
func (a *Analyzer) RunEvery(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !a.TryRun(ctx) {
				log.Debug("sentiment.schedule: previous run still in flight")
			}
		}
	}
}

type pending struct {
	id         string
	companyID  string
	mode       string
	text       string
	audio      []byte
	transcript string
	day        string
}

func (a *Analyzer) run(ctx context.Context) error {
	rows, err := a.db.QueryContext(ctx, `
		SELECT id, company_id, mode, text_feedback, audio, transcript, time
		FROM feedback
		WHERE analyzed = 0`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var batch []pending
	for rows.Next() {
		var p pending
		var t time.Time
		err = rows.Scan(&p.id, &p.companyID, &p.mode, &p.text, &p.audio, &p.transcript, &t)
		if err != nil {
			return err
		}
		p.day = t.UTC().Format("2006-01-02")
		batch = append(batch, p)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if len(batch) == 0 {
		return nil
	}
	log.Infof("sentiment.run: analyzing %d feedback entries", len(batch))

	// (company, day) pairs whose summary needs a refresh
	touched := map[[2]string]bool{}

	for _, p := range batch {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := a.analyzeOne(ctx, p); err != nil {
			// keep going, the row stays unanalyzed for the next run
			log.Errorf("sentiment.analyze(%s): %s", p.id, err)
			continue
		}
		touched[[2]string{p.companyID, p.day}] = true
	}

	for key := range touched {
		if err := a.summarizeDay(ctx, key[0], key[1]); err != nil {
			log.Errorf("sentiment.summarize(%s/%s): %s", key[0], key[1], err)
		}
	}
	return nil
}

func (a *Analyzer) analyzeOne(ctx context.Context, p pending) error {
	content := p.text
	transcript := p.transcript

	if p.mode == "voice" && transcript == "" && len(p.audio) > 0 {
		var err error
		transcript, err = a.transcribe(ctx, p.audio)
		if err != nil {
			return fmt.Errorf("transcribe: %w", err)
		}
	}
	if transcript != "" {
		content = transcript
	}

	sentiment := model.SentimentNeutral
	themes := []string{}
	if strings.TrimSpace(content) != "" {
		var err error
		sentiment, themes, err = a.classify(ctx, content)
		if err != nil {
			return fmt.Errorf("classify: %w", err)
		}
	}

	themesJSON, err := json.Marshal(themes)
	if err != nil {
		return err
	}

	_, err = a.db.ExecContext(ctx, `
		UPDATE feedback
		SET transcript = ?, sentiment = ?, themes = ?, analyzed = 1
		WHERE id = ?`,
		transcript,
		string(sentiment),
		string(themesJSON),
		p.id,
	)
	return err
}

func (a *Analyzer) transcribe(ctx context.Context, audio []byte) (string, error) {
	resp, err := a.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: "feedback.webm",
		Reader:   bytes.NewReader(audio),
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

const classifyPrompt = `You classify customer feedback.
Reply with strict JSON, no prose: {"sentiment":"positive"|"neutral"|"negative","themes":["short theme", ...]}.
Themes are at most 5 short noun phrases naming what the customer talked about.`

func (a *Analyzer) classify(ctx context.Context, content string) (model.Sentiment, []string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: classifyPrompt},
			{Role: openai.ChatMessageRoleUser, Content: content},
		},
	})
	if err != nil {
		return "", nil, err
	}
	if len(resp.Choices) == 0 {
		return "", nil, fmt.Errorf("empty completion")
	}

	var parsed struct {
		Sentiment string   `json:"sentiment"`
		Themes    []string `json:"themes"`
	}
	raw := stripFences(resp.Choices[0].Message.Content)
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return "", nil, fmt.Errorf("bad completion %q: %w", raw, err)
	}

	switch model.Sentiment(parsed.Sentiment) {
	case model.SentimentPositive, model.SentimentNeutral, model.SentimentNegative:
	default:
		return "", nil, fmt.Errorf("bad sentiment %q", parsed.Sentiment)
	}
	if parsed.Themes == nil {
		parsed.Themes = []string{}
	}
	return model.Sentiment(parsed.Sentiment), parsed.Themes, nil
}

const summaryPrompt = `You summarize one day of customer feedback for a staff dashboard.
Given feedback excerpts and their themes, write 2-3 plain sentences naming the dominant themes and overall mood. No markdown.`

func (a *Analyzer) summarizeDay(ctx context.Context, companyID, day string) error {
	rows, err := a.db.QueryContext(ctx, `
		SELECT text_feedback, transcript, themes
		FROM feedback
		WHERE company_id = ?
			AND analyzed = 1
			AND date(time) = ?`,
		companyID,
		day,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	var sb strings.Builder
	for rows.Next() {
		var text, transcript, themes string
		if err := rows.Scan(&text, &transcript, &themes); err != nil {
			return err
		}
		if transcript != "" {
			text = transcript
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		fmt.Fprintf(&sb, "- %s (themes: %s)\n", text, themes)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if sb.Len() == 0 {
		return nil
	}

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: summaryPrompt},
			{Role: openai.ChatMessageRoleUser, Content: sb.String()},
		},
	})
	if err != nil {
		return err
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("empty completion")
	}

	_, err = a.db.ExecContext(ctx, `
		INSERT INTO daily_summary (company_id, day, summary, generated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (company_id, day) DO UPDATE
		SET summary = excluded.summary, generated_at = excluded.generated_at`,
		companyID,
		day,
		strings.TrimSpace(resp.Choices[0].Message.Content),
		time.Now(),
	)
	return err
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}
