package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"

	"github.com/FACorreiaa/learnhub-api/config"
)

// FCM accepts at most this many tokens per multicast.
const maxTokensPerBatch = 500

var ErrNotConfigured = errors.New("push notifications are not configured")

type Notification struct {
	Title string
	Body  string
	Data  map[string]any
}

// Result summarises one Send. Stale lists tokens FCM reported as no longer
// registered.
type Result struct {
	Sent   int
	Failed int
	Stale  []string
}

type multicaster interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

type Firebase struct {
	client multicaster
	logger *slog.Logger
}

func NewFirebase(ctx context.Context, cfg config.FirebaseConfig, logger *slog.Logger) (*Firebase, error) {
	if cfg.ProjectID == "" {
		return nil, ErrNotConfigured
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &Firebase{client: client, logger: logger}, nil
}

// Send pushes n to every token. Per-token failures are counted, not returned.
func (f *Firebase) Send(ctx context.Context, tokens []string, n Notification) (*Result, error) {
	l := f.logger.With(slog.String("method", "Send"))
	res := &Result{}
	if len(tokens) == 0 {
		return res, nil
	}

	data := stringifyData(n.Data)
	for start := 0; start < len(tokens); start += maxTokensPerBatch {
		end := min(start+maxTokensPerBatch, len(tokens))
		batch := tokens[start:end]

		resp, err := f.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
			Tokens:       batch,
			Notification: &messaging.Notification{Title: n.Title, Body: n.Body},
			Data:         data,
		})
		if err != nil {
			l.ErrorContext(ctx, "Multicast failed", slog.Any("error", err))
			return res, fmt.Errorf("failed to send push notification: %w", err)
		}

		res.Sent += resp.SuccessCount
		res.Failed += resp.FailureCount
		for i, r := range resp.Responses {
			if r != nil && !r.Success && messaging.IsRegistrationTokenNotRegistered(r.Error) {
				res.Stale = append(res.Stale, batch[i])
			}
		}
	}

	l.InfoContext(ctx, "Push notification sent",
		slog.Int("sent", res.Sent),
		slog.Int("failed", res.Failed))
	return res, nil
}

// stringifyData converts payload values to strings, the only type FCM data
// accepts. Composite values are JSON encoded.
func stringifyData(in map[string]any) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		switch val := v.(type) {
		case nil:
			out[k] = ""
		case string:
			out[k] = val
		case fmt.Stringer:
			out[k] = val.String()
		case bool, int, int32, int64, float32, float64:
			out[k] = fmt.Sprint(val)
		default:
			b, err := json.Marshal(val)
			if err != nil {
				out[k] = fmt.Sprint(val)
				continue
			}
			out[k] = string(b)
		}
	}
	return out
}

// LogNotifier stands in for Firebase when no project is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Send(ctx context.Context, tokens []string, note Notification) (*Result, error) {
	n.logger.InfoContext(ctx, "Push notification skipped, firebase not configured",
		slog.String("title", note.Title),
		slog.Int("tokens", len(tokens)))
	return &Result{}, nil
}
