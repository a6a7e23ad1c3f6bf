package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v3"

	"github.com/sapl-run/sapl-core/ast"
	"github.com/sapl-run/sapl-core/combine"
	"github.com/sapl-run/sapl-core/config"
	"github.com/sapl-run/sapl-core/dispatch"
	"github.com/sapl-run/sapl-core/evalctx"
	"github.com/sapl-run/sapl-core/internal/logging"
	"github.com/sapl-run/sapl-core/prp"
	"github.com/sapl-run/sapl-core/stream"
	"github.com/sapl-run/sapl-core/value"

	_ "github.com/sapl-run/sapl-core/prp/static"
)

func evaluateCommand() *cli.Command {
	cfg := config.DefaultConfig()
	var subject, action, resource, environment string
	var watch bool

	return &cli.Command{
		Name:  "evaluate",
		Usage: "Evaluate one subscription against a policy retrieval point",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "subject", Destination: &subject, Value: "null", Sources: cli.EnvVars("SAPL_SUBJECT")},
			&cli.StringFlag{Name: "action", Destination: &action, Value: "null", Sources: cli.EnvVars("SAPL_ACTION")},
			&cli.StringFlag{Name: "resource", Destination: &resource, Value: "null", Sources: cli.EnvVars("SAPL_RESOURCE")},
			&cli.StringFlag{Name: "environment", Destination: &environment, Value: "null", Sources: cli.EnvVars("SAPL_ENVIRONMENT")},
			&cli.StringFlag{Name: "policy-dir", Destination: &cfg.StaticPolicyDir, Value: cfg.StaticPolicyDir, Sources: cli.EnvVars("SAPL_STATIC_POLICY_DIR")},
			&cli.StringFlag{Name: "algorithm", Destination: &cfg.TopLevelAlgorithm, Value: "denyOverrides", Sources: cli.EnvVars("SAPL_TOP_LEVEL_ALGORITHM")},
			&cli.StringFlag{Name: "log-level", Destination: &cfg.LogLevel, Value: cfg.LogLevel, Sources: cli.EnvVars("SAPL_LOG_LEVEL")},
			&cli.StringFlag{Name: "attribute-cache-backend", Destination: &cfg.AttributeCacheBackend, Value: cfg.AttributeCacheBackend, Sources: cli.EnvVars("SAPL_ATTRIBUTE_CACHE_BACKEND")},
			&cli.StringFlag{Name: "redis-url", Destination: &cfg.RedisURL, Sources: cli.EnvVars("SAPL_REDIS_URL")},
			&cli.StringFlag{Name: "rego-finder-dir", Destination: &cfg.RegoFinderPolicyDir, Sources: cli.EnvVars("SAPL_REGO_FINDER_DIR")},
			&cli.BoolFlag{Name: "watch", Destination: &watch, Usage: "keep the subscription open and print every decision change"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx = config.WithContext(ctx, &cfg)
			logger := logging.New(&cfg)

			sub, err := buildSubscription(subject, action, resource, environment)
			if err != nil {
				return err
			}

			loader, err := prp.Select("static")
			if err != nil {
				return err
			}
			source, err := loader(ctx)
			if err != nil {
				return err
			}

			algo, err := ast.ParseAlgorithm(cfg.TopLevelAlgorithm)
			if err != nil {
				return err
			}

			evalID := uuid.NewString()
			ectx := evalctx.Context{
				PdpID:           cfg.PdpID,
				ConfigurationID: cfg.ConfigurationID,
				EvaluationID:    evalID,
				Subscription:    sub,
			}
			logger = logging.ForSubscription(logger, evalID)

			dispatcher := dispatch.NewDispatcher()
			decisions := dispatcher.Dispatch(ectx, source, combine.Select(algo))

			if !watch {
				cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				first, ok := stream.First(cctx, decisions)
				if !ok {
					return fmt.Errorf("pdpctl: no decision produced")
				}
				logger.Info("decision", "entitlement", first.Entitlement.String())
				fmt.Println(first.Entitlement)
				return nil
			}

			for d := range decisions(ctx) {
				logger.Info("decision", "entitlement", d.Entitlement.String(), "state", d.Reason)
				fmt.Println(d.Entitlement)
			}
			return nil
		},
	}
}

func buildSubscription(subjectJSON, actionJSON, resourceJSON, environmentJSON string) (evalctx.Subscription, error) {
	subject, err := value.ParseJSON([]byte(subjectJSON))
	if err != nil {
		return evalctx.Subscription{}, fmt.Errorf("pdpctl: subject: %w", err)
	}
	action, err := value.ParseJSON([]byte(actionJSON))
	if err != nil {
		return evalctx.Subscription{}, fmt.Errorf("pdpctl: action: %w", err)
	}
	resource, err := value.ParseJSON([]byte(resourceJSON))
	if err != nil {
		return evalctx.Subscription{}, fmt.Errorf("pdpctl: resource: %w", err)
	}
	environment, err := value.ParseJSON([]byte(environmentJSON))
	if err != nil {
		return evalctx.Subscription{}, fmt.Errorf("pdpctl: environment: %w", err)
	}
	return evalctx.NewSubscription(subject, action, resource, environment), nil
}
