// Package tourmesh assembles the travel planning assistant: a planner agent
// with search, weather and knowledge tools that delegates calendar work to a
// calendar agent. Both agents of a session share one conversation window.
//
// Typical use:
//
//	tm, err := tourmesh.New(func(o *tourmesh.Options) {
//		o.Model = m
//		o.Calendar = backend
//	})
//	tm.SetDestination("s1", "Fortaleza")
//	res, err := tm.Ask(ctx, "s1", "Plan two days at the beach")
package tourmesh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hupe1980/tourmesh/agent"
	"github.com/hupe1980/tourmesh/core"
	"github.com/hupe1980/tourmesh/logging"
	"github.com/hupe1980/tourmesh/memory"
	"github.com/hupe1980/tourmesh/model"
	"github.com/hupe1980/tourmesh/session"
	"github.com/hupe1980/tourmesh/tool"
	"github.com/hupe1980/tourmesh/toolkit/calendar"
	"github.com/hupe1980/tourmesh/toolkit/knowledge"
	"github.com/hupe1980/tourmesh/toolkit/search"
	"github.com/hupe1980/tourmesh/toolkit/weather"
)

// Agent and delegation names.
const (
	PlannerAgentName  = "Travel Planner"
	CalendarAgentName = "Calendar Agent"
)

// PlannerInstruction is the default persona of the travel planner.
const PlannerInstruction = `You are a tourism assistant that builds personalised travel itineraries.
Before proposing an itinerary, make sure you know the destination, the exact travel dates and the user's interests; ask for whatever is missing.
Check the weather for every day of the trip and plan outdoor activities around it.
Use the knowledge base for sights that match the user's interests and the web search for events happening during the stay.
Hand everything related to calendars, such as saving the itinerary, to the Calendar Agent with a complete description of each event.`

// CalendarInstruction is the default persona of the calendar agent.
const CalendarInstruction = `You manage the user's calendars.
Create calendars, list calendars and events, and insert one event per call with all details you were given.
Unless stated otherwise use the calendar "primary" and the time zone {{default "America/Fortaleza" .time_zone}}.
Always report the link of every event you create.`

// Options configures a TourMesh.
type Options struct {
	// Model drives both agents. Required.
	Model model.Model
	// Calendar stores calendars and events. Required.
	Calendar calendar.Backend
	// CalendarTimeZone applies to event times without a zone.
	CalendarTimeZone string

	// Optional planner capabilities; nil leaves the tool out.
	Weather    *weather.Client
	Search     search.Provider
	PageReader *search.PageReader
	Knowledge  *knowledge.Store

	SearchMaxResults int
	KnowledgeTopK    int
	// ExtraTools are registered on the planner after the built-in tools.
	ExtraTools []tool.Tool

	PlannerInstruction  string
	CalendarInstruction string

	MaxIterations       int
	MaxExecutionTime    time.Duration
	HandleParsingErrors bool
	MemoryWindow        int
	Locale              string
	Now                 func() time.Time

	Callbacks *agent.CallbackManager
	Logger    logging.Logger
	// Tracer receives the run and tool spans. Nil uses the global provider.
	Tracer trace.Tracer
}

// TourMesh serves conversations with the travel planner.
type TourMesh struct {
	opts          Options
	sessions      *session.InMemoryStore
	plannerTools  []tool.Tool
	calendarTools []tool.Tool

	mu     sync.Mutex
	agents map[*session.Session]*sessionAgents
}

type sessionAgents struct {
	planner  *agent.Executor
	calendar *agent.Executor
}

// New validates the options and prepares the shared tools. Agents are built
// lazily per session so each session's window backs both of them.
func New(optFns ...func(o *Options)) (*TourMesh, error) {
	opts := Options{
		CalendarTimeZone:    calendar.DefaultTimeZone,
		SearchMaxResults:    5,
		KnowledgeTopK:       5,
		PlannerInstruction:  PlannerInstruction,
		CalendarInstruction: CalendarInstruction,
		MaxIterations:       agent.DefaultMaxIterations,
		HandleParsingErrors: true,
		MemoryWindow:        memory.DefaultWindowSize,
		Locale:              "en",
		Now:                 time.Now,
		Logger:              logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Model == nil {
		return nil, errors.New("tourmesh: model is required")
	}

	if opts.Calendar == nil {
		return nil, errors.New("tourmesh: calendar backend is required")
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	tm := &TourMesh{
		opts:          opts,
		sessions:      session.NewInMemoryStore(opts.MemoryWindow),
		calendarTools: calendar.NewToolkit(opts.Calendar, opts.CalendarTimeZone, toolLogger(opts.Logger, "calendar")).Tools(),
		agents:        make(map[*session.Session]*sessionAgents),
	}

	if opts.Search != nil {
		tm.plannerTools = append(tm.plannerTools, search.NewSearchTool(opts.Search, opts.SearchMaxResults, toolLogger(opts.Logger, "search")))
	}

	if opts.PageReader != nil {
		tm.plannerTools = append(tm.plannerTools, search.NewReaderTool(opts.PageReader, toolLogger(opts.Logger, "search")))
	}

	if opts.Weather != nil {
		tm.plannerTools = append(tm.plannerTools, weather.NewTool(opts.Weather, toolLogger(opts.Logger, "weather")))
	}

	if opts.Knowledge != nil {
		tm.plannerTools = append(tm.plannerTools, knowledge.NewTool(opts.Knowledge, opts.KnowledgeTopK, toolLogger(opts.Logger, "knowledge")))
	}

	tm.plannerTools = append(tm.plannerTools, opts.ExtraTools...)

	// Fail fast on name collisions instead of at the first session. The
	// calendar delegate is registered per session, so reserve its name here.
	registry, err := tool.NewRegistry(tm.plannerTools...)
	if err != nil {
		return nil, fmt.Errorf("tourmesh: planner tools: %w", err)
	}

	if _, err := registry.Resolve(CalendarAgentName); err == nil {
		return nil, fmt.Errorf("tourmesh: planner tools: %w", &core.DuplicateNameError{Name: CalendarAgentName})
	}

	return tm, nil
}

func toolLogger(logger logging.Logger, component string) func(o *tool.FunctionToolOptions) {
	if sl, ok := logger.(*logging.StructuredLogger); ok {
		logger = sl.WithComponent(component)
	}

	return tool.WithLogger(logger)
}

// Ask runs one turn of the conversation sessionID. Turns of the same session
// are serialized; different sessions run concurrently.
func (tm *TourMesh) Ask(ctx context.Context, sessionID, input string) (*agent.Result, error) {
	s, _ := tm.sessions.Get(sessionID)

	agents, err := tm.agentsFor(s)
	if err != nil {
		return nil, err
	}

	var res *agent.Result

	err = s.Serialize(func() error {
		vars := s.Vars()
		vars["time_zone"] = tm.opts.CalendarTimeZone

		var runErr error
		res, runErr = agents.planner.Run(ctx, input, vars)

		return runErr
	})

	return res, err
}

// SetDestination sets the destination variable of sessionID.
func (tm *TourMesh) SetDestination(sessionID, destination string) {
	s, _ := tm.sessions.Get(sessionID)
	s.SetVar(core.VarDestination, destination)
}

// SetVar sets an arbitrary session variable.
func (tm *TourMesh) SetVar(sessionID, key, value string) {
	s, _ := tm.sessions.Get(sessionID)
	s.SetVar(key, value)
}

// Session returns a snapshot of sessionID.
func (tm *TourMesh) Session(sessionID string) (session.Snapshot, bool) {
	s, ok := tm.sessions.Lookup(sessionID)
	if !ok {
		return session.Snapshot{}, false
	}

	return s.Snapshot(), true
}

// Sessions lists the active session ids.
func (tm *TourMesh) Sessions() []string {
	return tm.sessions.IDs()
}

// Reset tears down sessionID: its history, variables and agents are dropped.
func (tm *TourMesh) Reset(sessionID string) {
	s, ok := tm.sessions.Lookup(sessionID)
	if !ok {
		return
	}

	s.Reset()
	tm.sessions.Delete(sessionID)

	tm.mu.Lock()
	delete(tm.agents, s)
	tm.mu.Unlock()

	tm.opts.Logger.Info("session.reset", "session_id", sessionID)
}

func (tm *TourMesh) agentsFor(s *session.Session) (*sessionAgents, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if a, ok := tm.agents[s]; ok {
		return a, nil
	}

	a, err := tm.buildAgents(s)
	if err != nil {
		return nil, err
	}

	tm.agents[s] = a

	return a, nil
}

func (tm *TourMesh) buildAgents(s *session.Session) (*sessionAgents, error) {
	logger := tm.opts.Logger
	if sl, ok := logger.(*logging.StructuredLogger); ok {
		logger = sl.WithSession(s.ID)
	}

	common := func(name, instruction string) func(o *agent.Options) {
		return func(o *agent.Options) {
			o.Name = name
			o.Instruction = agent.NewInstructionFromText(instruction)
			o.MaxIterations = tm.opts.MaxIterations
			o.MaxExecutionTime = tm.opts.MaxExecutionTime
			o.HandleParsingErrors = tm.opts.HandleParsingErrors
			o.Locale = tm.opts.Locale
			o.Now = tm.opts.Now
			o.Callbacks = tm.opts.Callbacks
			o.Logger = logger
			o.Tracer = tm.opts.Tracer
		}
	}

	calendarRegistry, err := tool.NewRegistry(tm.calendarTools...)
	if err != nil {
		return nil, fmt.Errorf("tourmesh: calendar tools: %w", err)
	}

	calendarAgent, err := agent.NewExecutor(tm.opts.Model, calendarRegistry, s.Memory(),
		common(CalendarAgentName, tm.opts.CalendarInstruction))
	if err != nil {
		return nil, err
	}

	delegate, err := agent.NewDelegateTool(CalendarAgentName,
		"This agent handles everything related to calendars: creating calendars, listing them and their events, and adding events. Input: a complete description of the request.",
		calendarAgent)
	if err != nil {
		return nil, err
	}

	plannerRegistry, err := tool.NewRegistry(tm.plannerTools...)
	if err != nil {
		return nil, fmt.Errorf("tourmesh: planner tools: %w", err)
	}

	if err := plannerRegistry.Register(delegate); err != nil {
		return nil, fmt.Errorf("tourmesh: %w", err)
	}

	planner, err := agent.NewExecutor(tm.opts.Model, plannerRegistry, s.Memory(),
		common(PlannerAgentName, tm.opts.PlannerInstruction))
	if err != nil {
		return nil, err
	}

	return &sessionAgents{planner: planner, calendar: calendarAgent}, nil
}
