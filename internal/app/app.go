package app

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/slack-go/slack"
	"golang.org/x/sync/errgroup"

	"tasklens/internal/config"
	"tasklens/internal/digest"
	"tasklens/internal/httpapi"
	"tasklens/internal/httpx"
	"tasklens/internal/insights"
	"tasklens/internal/integrations/llm"
	slackbot "tasklens/internal/integrations/slack"
	"tasklens/internal/storage"
	"tasklens/internal/tagging"
	"tasklens/internal/tasks"
)

func Main() {
	cfg := config.LoadConfig()
	appliedHTTPTimeout := httpx.ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf(
		"Config loaded. DBDriver=%s Classifier=%s LLMProvider=%s Members=%d Managers=%d Timezone=%s MaxOpenTasks=%d ClassifyConcurrency=%d GlossaryPath=%s ExternalHTTPTimeout=%s",
		cfg.DBDriver,
		cfg.Classifier,
		cfg.LLMProvider,
		len(cfg.Members),
		len(cfg.ManagerSlackIDs),
		cfg.Timezone,
		cfg.MaxOpenTasks,
		cfg.ClassifyConcurrency,
		cfg.GlossaryPath,
		appliedHTTPTimeout,
	)

	store, err := storage.Open(cfg.DBDriver, cfg.DataSource())
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized driver=%s", cfg.DBDriver)
	defer store.Close()

	classifier, err := newClassifier(cfg)
	if err != nil {
		log.Fatalf("Failed to init classifier: %v", err)
	}

	taskSvc := tasks.NewService(store, classifier, tasks.Options{
		MaxOpenTasks:        cfg.OpenTaskLimit(),
		ClassifyConcurrency: cfg.ClassifyConcurrency,
		Location:            cfg.Location,
	})
	insightSvc := insights.NewService(store, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	api := httpapi.NewServer(taskSvc, insightSvc, classifier, store, httpapi.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Location:       cfg.Location,
		MondayCutoff:   cfg.MondayCutoffTime,
	})
	g.Go(func() error { return api.Serve(ctx, cfg.HTTPAddr) })

	if cfg.SlackConfigured() {
		slackAPI := slack.New(
			cfg.SlackBotToken,
			slack.OptionAppLevelToken(cfg.SlackAppToken),
		)

		d := digest.New(insightSvc, slackbot.NewDMSender(slackAPI), slackbot.NewDirectory(slackAPI), digest.Options{
			Schedule:     cfg.DigestSchedule,
			Members:      cfg.Members,
			MondayCutoff: cfg.MondayCutoffTime,
			Location:     cfg.Location,
		})
		if err := d.Start(ctx); err != nil {
			log.Printf("Digest disabled: %v", err)
		}

		bot := slackbot.New(slackAPI, cfg, taskSvc, insightSvc, store)
		g.Go(func() error { return bot.Run(ctx) })
	}

	log.Println("Starting tasklens...")
	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatalf("tasklens error: %v", err)
	}
	log.Println("tasklens stopped")
}

// newClassifier builds the configured classifier, wrapped by the glossary
// when one is set.
func newClassifier(cfg config.Config) (tagging.Classifier, error) {
	var c tagging.Classifier = tagging.KeywordClassifier{}
	if cfg.Classifier == config.ClassifierLLM {
		llmClassifier, err := llm.NewClassifier(llm.Config{
			Provider:        cfg.LLMProvider,
			Model:           cfg.LLMModel,
			AnthropicAPIKey: cfg.AnthropicAPIKey,
			OpenAIAPIKey:    cfg.OpenAIAPIKey,
			OpenAIBaseURL:   cfg.OpenAIBaseURL,
		})
		if err != nil {
			return nil, err
		}
		c = llmClassifier
	}
	if cfg.GlossaryPath == "" {
		return c, nil
	}
	g, err := tagging.LoadGlossary(cfg.GlossaryPath, c)
	if err != nil {
		return nil, err
	}
	log.Printf("Glossary loaded terms=%d path=%s", g.Len(), cfg.GlossaryPath)
	return g, nil
}
