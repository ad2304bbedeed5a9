package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/hupe1980/tourmesh"
	"github.com/hupe1980/tourmesh/agent"
	"github.com/hupe1980/tourmesh/config"
	"github.com/hupe1980/tourmesh/internal/tracing"
	"github.com/hupe1980/tourmesh/logging"
	"github.com/hupe1980/tourmesh/model"
	"github.com/hupe1980/tourmesh/model/anthropic"
	"github.com/hupe1980/tourmesh/model/openai"
	"github.com/hupe1980/tourmesh/toolkit/calendar"
	"github.com/hupe1980/tourmesh/toolkit/knowledge"
	"github.com/hupe1980/tourmesh/toolkit/search"
	"github.com/hupe1980/tourmesh/toolkit/weather"
)

// app owns the stores opened for one command.
type app struct {
	mesh      *tourmesh.TourMesh
	calendar  *calendar.SQLiteBackend
	knowledge *knowledge.Store
	tracer    *sdktrace.TracerProvider
	logger    *logging.StructuredLogger
}

func (a *app) Close() error {
	var errs []error

	if a.tracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, a.tracer.Shutdown(ctx))
		cancel()
	}

	if a.calendar != nil {
		errs = append(errs, a.calendar.Close())
	}

	if a.knowledge != nil {
		errs = append(errs, a.knowledge.Close())
	}

	return errors.Join(errs...)
}

// newModel is replaced in tests.
var newModel = func(cfg config.ModelConfig) (model.Model, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("no API key for provider %q; set it in the config or the environment", cfg.Provider)
	}

	switch cfg.Provider {
	case "openai":
		return openai.NewModel(func(o *openai.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Temperature = cfg.Temperature
			o.MaxCompletionTokens = cfg.MaxTokens
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
		}), nil
	case "anthropic":
		return anthropic.NewModel(func(o *anthropic.Options) {
			o.APIKey = cfg.APIKey
			o.BaseURL = cfg.BaseURL
			o.Temperature = cfg.Temperature
			o.MaxTokens = cfg.MaxTokens
			if cfg.Name != "" {
				o.Model = cfg.Name
			}
		}), nil
	default:
		return nil, fmt.Errorf("unsupported model provider %q", cfg.Provider)
	}
}

// openStores opens the local databases without a model.
func openStores(cfg *config.Config) (*app, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, err
	}

	a := &app{logger: logger}

	a.calendar, err = calendar.OpenSQLite(cfg.Calendar.Path, logger.WithComponent("calendar"))
	if err != nil {
		return nil, fmt.Errorf("open calendar: %w", err)
	}

	a.knowledge, err = knowledge.Open(cfg.Knowledge.Path, func(o *knowledge.StoreOptions) {
		o.Logger = logger.WithComponent("knowledge")
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open knowledge base: %w", err)
	}

	return a, nil
}

// newApp opens the stores and assembles the planner.
func newApp(cfg *config.Config) (*app, error) {
	a, err := openStores(cfg)
	if err != nil {
		return nil, err
	}

	m, err := newModel(cfg.Model)
	if err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Tracing.Enabled() {
		a.tracer, err = tracing.NewProvider(context.Background(), tracing.Config{
			Endpoint:    cfg.Tracing.Endpoint,
			Protocol:    cfg.Tracing.Protocol,
			Insecure:    cfg.Tracing.Insecure,
			ServiceName: cfg.Tracing.ServiceName,
			Headers:     cfg.Tracing.Headers,
			SampleRatio: cfg.Tracing.SampleRatio,
		})
		if err != nil {
			a.Close()
			return nil, err
		}

		otel.SetTracerProvider(a.tracer)
		a.logger.Info("tracing.enabled", "endpoint", cfg.Tracing.Endpoint, "protocol", cfg.Tracing.Protocol)
	}

	httpClient := &http.Client{Timeout: 20 * time.Second}

	a.mesh, err = tourmesh.New(func(o *tourmesh.Options) {
		o.Model = m
		o.Calendar = a.calendar
		o.CalendarTimeZone = cfg.Calendar.DefaultTimeZone
		o.Knowledge = a.knowledge
		o.KnowledgeTopK = cfg.Knowledge.TopK

		if cfg.SearchEnabled() {
			o.Search = search.NewDuckDuckGo(func(so *search.DuckDuckGoOptions) {
				so.HTTPClient = httpClient
				so.Logger = a.logger.WithComponent("search")
			})
			o.PageReader = search.NewPageReader(httpClient)
			o.SearchMaxResults = cfg.Search.MaxResults
		}

		if cfg.Weather.APIKey != "" {
			o.Weather = weather.NewClient(func(wo *weather.ClientOptions) {
				wo.APIKey = cfg.Weather.APIKey
				wo.BaseURL = cfg.Weather.BaseURL
				wo.Language = cfg.Weather.Language
				wo.RequestsPerMinute = cfg.Weather.RequestsPerMinute
				wo.CacheTTL = cfg.Weather.CacheTTL
				wo.Logger = a.logger.WithComponent("weather")
			})
		} else {
			a.logger.Warn("weather.disabled", "reason", "no api key")
		}

		o.MaxIterations = cfg.Agent.MaxIterations
		o.MaxExecutionTime = cfg.Agent.MaxExecutionTime
		o.HandleParsingErrors = cfg.HandleParsingErrors()
		o.MemoryWindow = cfg.Agent.MemoryWindow
		o.Locale = cfg.Agent.Locale
		o.Callbacks = loggingCallbacks(a.logger.WithComponent("agent"))
		o.Logger = a.logger.WithComponent("agent")
		if a.tracer != nil {
			o.Tracer = a.tracer.Tracer("github.com/hupe1980/tourmesh")
		}
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	return a, nil
}

func loggingCallbacks(logger logging.Logger) *agent.CallbackManager {
	cm := agent.NewCallbackManager()
	for _, t := range []agent.CallbackType{
		agent.CallbackBeforeModel,
		agent.CallbackAfterModel,
		agent.CallbackBeforeTool,
		agent.CallbackAfterTool,
		agent.CallbackOnStateChange,
	} {
		cm.RegisterCallback(agent.NewLoggingCallback(t, logger))
	}

	return cm
}
