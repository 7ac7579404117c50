package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dukex/concordctl/pkg/cmd"
	"github.com/dukex/concordctl/pkg/eventbus"
	"github.com/dukex/concordctl/pkg/events"
	"github.com/dukex/concordctl/pkg/models"
	"github.com/dukex/concordctl/pkg/watch"
	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"
)

var errMissingInstanceID = errors.New("a process instance ID is required")

func outputFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "output",
		Aliases: []string{"o"},
		Usage:   "Output format (table, json, yaml)",
		Value:   outputTable,
	}
}

func NewProcessCommand() *cli.Command {
	return &cli.Command{
		Name:    "process",
		Aliases: []string{"p"},
		Usage:   "Manage process instances",
		Commands: []*cli.Command{
			newListCommand(),
			newGetCommand(),
			newStartCommand(),
			newDisableCommand(),
			newKillCommand(),
			newWatchCommand(),
		},
	}
}

func newListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List processes, one page at a time",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "org", Usage: "Organization name"},
			&cli.StringFlag{Name: "org-id", Usage: "Organization ID"},
			&cli.StringFlag{Name: "project", Usage: "Project name"},
			&cli.StringFlag{Name: "project-id", Usage: "Project ID"},
			&cli.StringFlag{Name: "status", Usage: "Only processes in this status"},
			&cli.StringFlag{Name: "initiator", Usage: "Only processes started by this user"},
			&cli.StringFlag{Name: "parent", Usage: "Only children of this process"},
			&cli.StringFlag{Name: "after", Usage: "Created after this timestamp"},
			&cli.StringFlag{Name: "before", Usage: "Created before this timestamp"},
			&cli.StringSliceFlag{Name: "tag", Usage: "Only processes with this tag (repeatable)"},
			&cli.StringSliceFlag{Name: "meta", Usage: "Metadata filter as key=value (repeatable)"},
			&cli.StringSliceFlag{Name: "include", Usage: "Nested data to load: checkpoints, history, childrenIds"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Page size", Value: models.DefaultLimit},
			&cli.IntFlag{Name: "offset", Usage: "Number of processes to skip"},
			outputFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			query, err := listQueryFromFlags(command)
			if err != nil {
				return err
			}

			p, err := newPrinter(os.Stdout, command.String("output"))
			if err != nil {
				return err
			}

			rt, err := newRuntime(ctx, command, "process-list", nil)
			if err != nil {
				return err
			}
			defer rt.close()

			page, err := rt.service.List(ctx, query)
			if err != nil {
				return fmt.Errorf("failed to list processes: %w", err)
			}

			return p.page(page)
		},
	}
}

func listQueryFromFlags(command *cli.Command) (models.ProcessListQuery, error) {
	limit := command.Int("limit")

	query := models.ProcessListQuery{
		OrgName:         command.String("org"),
		ProjectName:     command.String("project"),
		Initiator:       command.String("initiator"),
		AfterCreatedAt:  command.String("after"),
		BeforeCreatedAt: command.String("before"),
		Tags:            command.StringSlice("tag"),
		Limit:           &limit,
		Offset:          command.Int("offset"),
	}

	if query.Offset < 0 {
		return query, fmt.Errorf("offset must not be negative, got %d", query.Offset)
	}

	var err error

	if query.OrgID, err = optionalUUIDFlag(command, "org-id"); err != nil {
		return query, err
	}

	if query.ProjectID, err = optionalUUIDFlag(command, "project-id"); err != nil {
		return query, err
	}

	if query.ParentInstanceID, err = optionalUUIDFlag(command, "parent"); err != nil {
		return query, err
	}

	if status := command.String("status"); status != "" {
		if query.Status, err = models.ParseProcessStatus(status); err != nil {
			return query, err
		}
	}

	if query.Include, err = models.ParseIncludes(command.StringSlice("include")); err != nil {
		return query, err
	}

	for _, pair := range command.StringSlice("meta") {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return query, fmt.Errorf("invalid meta filter %q, expected key=value", pair)
		}

		if query.Meta == nil {
			query.Meta = map[string]string{}
		}

		query.Meta[key] = value
	}

	return query, nil
}

func optionalUUIDFlag(command *cli.Command, name string) (*uuid.UUID, error) {
	value := command.String(name)
	if value == "" {
		return nil, nil
	}

	id, err := uuid.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s: %w", name, err)
	}

	return &id, nil
}

func instanceIDArg(command *cli.Command) (uuid.UUID, error) {
	if command.Args().Len() == 0 {
		return uuid.Nil, errMissingInstanceID
	}

	id, err := uuid.Parse(command.Args().First())
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid instance ID %q: %w", command.Args().First(), err)
	}

	return id, nil
}

func newGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show a single process",
		ArgsUsage: "<instance-id>",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{Name: "include", Usage: "Nested data to load: checkpoints, history, childrenIds"},
			outputFlag(),
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := instanceIDArg(command)
			if err != nil {
				return err
			}

			p, err := newPrinter(os.Stdout, command.String("output"))
			if err != nil {
				return err
			}

			include, err := models.ParseIncludes(command.StringSlice("include"))
			if err != nil {
				return err
			}

			rt, err := newRuntime(ctx, command, "process-get", nil)
			if err != nil {
				return err
			}
			defer rt.close()

			entry, err := rt.service.Get(ctx, id, include...)
			if err != nil {
				return fmt.Errorf("failed to fetch process %s: %w", id, err)
			}

			return p.process(entry)
		},
	}
}

func newStartCommand() *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Start a process from a repository",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "org", Usage: "Organization name", Required: true},
			&cli.StringFlag{Name: "project", Usage: "Project name", Required: true},
			&cli.StringFlag{Name: "repo", Usage: "Repository name", Required: true},
			&cli.StringFlag{Name: "entry-point", Usage: "Flow to run"},
			&cli.StringFlag{Name: "profiles", Usage: "Comma separated list of active profiles"},
			&cli.BoolFlag{Name: "watch", Aliases: []string{"w"}, Usage: "Follow the process until it finishes"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			rt, err := newRuntime(ctx, command, "process-start", nil)
			if err != nil {
				return err
			}
			defer rt.close()

			response, err := rt.service.Start(ctx, models.StartProcessRequest{
				Org:            command.String("org"),
				Project:        command.String("project"),
				Repo:           command.String("repo"),
				EntryPoint:     command.String("entry-point"),
				ActiveProfiles: command.String("profiles"),
			})
			if err != nil {
				return fmt.Errorf("failed to start process: %w", err)
			}

			fmt.Println(response.InstanceID)

			if !command.Bool("watch") {
				return nil
			}

			return watchProcess(ctx, rt, watch.NewWatcher(rt.service), response.InstanceID)
		},
	}
}

func newDisableCommand() *cli.Command {
	return &cli.Command{
		Name:      "disable",
		Usage:     "Disable a process, or enable it again with --enable",
		ArgsUsage: "<instance-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "enable", Usage: "Clear the disabled flag instead"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := instanceIDArg(command)
			if err != nil {
				return err
			}

			rt, err := newRuntime(ctx, command, "process-disable", nil)
			if err != nil {
				return err
			}
			defer rt.close()

			disabled := !command.Bool("enable")

			if err := rt.service.Disable(ctx, id, disabled); err != nil {
				return fmt.Errorf("failed to update process %s: %w", id, err)
			}

			rt.logger.InfoContext(ctx, "Process updated", "instance_id", id, "disabled", disabled)

			return nil
		},
	}
}

func newKillCommand() *cli.Command {
	return &cli.Command{
		Name:      "kill",
		Aliases:   []string{"cancel"},
		Usage:     "Cancel one or more processes",
		ArgsUsage: "<instance-id> [instance-id...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Usage: "Skip the status check of a single process"},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() == 0 {
				return errMissingInstanceID
			}

			ids := make([]uuid.UUID, 0, command.Args().Len())

			for _, arg := range command.Args().Slice() {
				id, err := uuid.Parse(arg)
				if err != nil {
					return fmt.Errorf("invalid instance ID %q: %w", arg, err)
				}

				ids = append(ids, id)
			}

			rt, err := newRuntime(ctx, command, "process-kill", nil)
			if err != nil {
				return err
			}
			defer rt.close()

			switch {
			case len(ids) > 1:
				err = rt.service.KillBulk(ctx, ids)
			case command.Bool("force"):
				err = rt.service.Kill(ctx, ids[0])
			default:
				_, err = rt.service.Cancel(ctx, ids[0])
			}

			if err != nil {
				return fmt.Errorf("failed to cancel: %w", err)
			}

			return nil
		},
	}
}

func newWatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Follow a process until it reaches a final status",
		ArgsUsage: "<instance-id>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "interval",
				Usage: "Polling interval",
				Value: watch.DefaultInterval,
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Publish status events to this event bus (gochannel, kafka)",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma separated Kafka brokers",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			id, err := instanceIDArg(command)
			if err != nil {
				return err
			}

			rt, err := newRuntime(ctx, command, "process-watch", nil)
			if err != nil {
				return err
			}
			defer rt.close()

			opts := []watch.Option{watch.WithInterval(command.Duration("interval"))}

			if provider := command.String("event-bus"); provider != "" {
				bus, err := newWatchEventBus(ctx, rt, provider, command.String("kafka-brokers"))
				if err != nil {
					return err
				}

				defer func() {
					if err := bus.Close(); err != nil {
						rt.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
					}
				}()

				opts = append(opts, watch.WithEventBus(bus))
			}

			return watchProcess(ctx, rt, watch.NewWatcher(rt.service, opts...), id)
		},
	}
}

// newWatchEventBus builds the bus events are published to. The in-process
// gochannel bus has no other consumers, so its events are logged here.
func newWatchEventBus(ctx context.Context, rt *runtime, provider, brokers string) (eventbus.EventBus, error) {
	bus, err := cmd.NewEventBus(provider, brokers, rt.logger)
	if err != nil {
		return nil, err
	}

	if provider != "gochannel" {
		return bus, nil
	}

	logEvent := func(ctx context.Context, event any) error {
		rt.logger.InfoContext(ctx, "Process event", "event", event)

		return nil
	}

	if err := bus.Handle(events.ProcessStatusChangedEvent, logEvent); err != nil {
		return nil, err
	}

	if err := bus.Handle(events.ProcessFinishedEvent, logEvent); err != nil {
		return nil, err
	}

	if err := bus.Subscribe(ctx); err != nil {
		return nil, err
	}

	return bus, nil
}

// watchProcess prints every status change and fails when the process did not finish successfully.
func watchProcess(ctx context.Context, rt *runtime, watcher *watch.Watcher, id uuid.UUID) error {
	p, err := newPrinter(os.Stdout, outputTable)
	if err != nil {
		return err
	}

	watcher = watcher.With(watch.WithObserver(func(entry *models.ProcessEntry) {
		fmt.Printf("%s %s\n", entry.InstanceID, p.status(entry.Status))
	}))

	entry, err := watcher.Watch(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to watch process %s: %w", id, err)
	}

	if entry.Status != models.ProcessStatusFinished {
		if lastError, ok := entry.LastError(); ok {
			rt.logger.ErrorContext(ctx, "Process did not finish", "status", entry.Status, "last_error", lastError)
		}

		return cli.Exit(fmt.Sprintf("process %s ended with status %s", id, entry.Status), 2)
	}

	return nil
}
