package dispatch

import (
	"strings"
	"sync"

	"github.com/alecthomas/kong"
	"github.com/goliatone/go-errors"
)

// CLICommand exposes a registered command to a kong CLI host.
type CLICommand interface {
	CLIHandler() any
	CLIOptions() CLIConfig
}

// CLIConfig describes the CLI surface of one command.
type CLIConfig struct {
	Name        string
	Description string
	Group       string
	Aliases     []string
	Hidden      bool
}

func (opts CLIConfig) BuildTags() []string {
	var tags []string
	if len(opts.Aliases) > 0 {
		aliases := "aliases:" + strings.Join(opts.Aliases, ",")
		tags = append(tags, aliases)
	}

	if opts.Hidden {
		tags = append(tags, `hidden:""`)
	}

	return tags
}

// TriggerRegisterFunc wires one cron expression to a command; hosts
// normally point this at schedule.Scheduler.ScheduleCommand.
type TriggerRegisterFunc func(expression string, cmd Command) error

// Registry collects named commands before startup, then wires them into
// the CLI and trigger surfaces exactly once at Initialize.
type Registry struct {
	mu                sync.RWMutex
	units             map[string]Command
	order             []string
	initialized       bool
	triggerRegisterFn TriggerRegisterFunc
	cliOptions        []kong.Option
	config            Config
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		units:      make(map[string]Command),
		cliOptions: make([]kong.Option, 0),
	}
}

// SetTriggerRegister installs the trigger wiring hook.
func (r *Registry) SetTriggerRegister(fn TriggerRegisterFunc) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.triggerRegisterFn = fn
	return r
}

// SetConfig supplies the declarative config consumed at Initialize.
func (r *Registry) SetConfig(cfg Config) *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.config = cfg
	return r
}

// RegisterCommand adds a named command before initialization.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	if cmd == nil {
		return errors.New("command cannot be nil", errors.CategoryBadInput).
			WithTextCode("NIL_COMMAND")
	}
	if name == "" {
		return errors.New("command name cannot be empty", errors.CategoryBadInput).
			WithTextCode("EMPTY_COMMAND_NAME")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.New("cannot register commands after registry has been initialized", errors.CategoryConflict).
			WithTextCode("REGISTRY_ALREADY_INITIALIZED")
	}
	if _, exists := r.units[name]; exists {
		return errors.New("command already registered: "+name, errors.CategoryConflict).
			WithTextCode("DUPLICATE_COMMAND")
	}
	r.units[name] = cmd
	r.order = append(r.order, name)

	return nil
}

// Command looks up a registered command by name.
func (r *Registry) Command(name string) (Command, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cmd, ok := r.units[name]
	return cmd, ok
}

// Initialize wires every registered command into the CLI and trigger
// surfaces. It runs once; later registrations are rejected.
func (r *Registry) Initialize() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return errors.New("registry already initialized", errors.CategoryConflict).
			WithTextCode("REGISTRY_ALREADY_INITIALIZED")
	}

	var errs error
	for _, name := range r.order {
		if cliCmd, ok := r.units[name].(CLICommand); ok {
			r.registerWithCLI(cliCmd)
		}
	}

	for _, trigger := range r.config.Triggers {
		if err := r.registerTrigger(trigger); err != nil {
			errs = errors.Join(errs, err)
		}
	}

	r.initialized = true

	return errs
}

func (r *Registry) registerTrigger(trigger TriggerConfig) error {
	if r.triggerRegisterFn == nil {
		return errors.New("trigger scheduler not provided during initialization", errors.CategoryBadInput).
			WithTextCode("TRIGGER_SCHEDULER_NOT_SET")
	}

	cmd, ok := r.units[trigger.Unit]
	if !ok {
		return errors.New("trigger references unknown unit: "+trigger.Unit, errors.CategoryBadInput).
			WithTextCode("UNKNOWN_TRIGGER_UNIT")
	}

	if err := r.triggerRegisterFn(trigger.Expression, cmd); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "trigger registration failed").
			WithTextCode("TRIGGER_REGISTRATION_FAILED").
			WithMetadata(map[string]any{
				"unit":       trigger.Unit,
				"expression": trigger.Expression,
			})
	}

	return nil
}

func (r *Registry) registerWithCLI(cliCmd CLICommand) {
	opts := cliCmd.CLIOptions()
	kongCmd := cliCmd.CLIHandler()

	tags := opts.BuildTags()

	option := kong.DynamicCommand(
		opts.Name,
		opts.Description,
		opts.Group,
		kongCmd,
		tags...,
	)

	r.cliOptions = append(r.cliOptions, option)
}

// GetCLIOptions returns the kong options assembled at Initialize.
func (r *Registry) GetCLIOptions() ([]kong.Option, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.initialized {
		return nil, errors.New("registry not initialized", errors.CategoryConflict).
			WithTextCode("REGISTRY_NOT_INITIALIZED")
	}

	options := make([]kong.Option, len(r.cliOptions))
	copy(options, r.cliOptions)
	return options, nil
}
