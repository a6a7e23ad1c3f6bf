package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
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
)

// serveDemoCommand runs a minimal single-shot HTTP decision endpoint,
// standing in for a real PEP transport binding: POST a subscription body
// to /decide, get back the first decision it produces. It exists to give
// the engine a reachable surface for manual exploration, not to model a
// production PDP server.
func serveDemoCommand() *cli.Command {
	cfg := config.DefaultConfig()

	return &cli.Command{
		Name:  "serve-demo",
		Usage: "Run a minimal HTTP decision endpoint backed by the static policy retrieval point",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "policy-dir", Destination: &cfg.StaticPolicyDir, Value: cfg.StaticPolicyDir, Sources: cli.EnvVars("SAPL_STATIC_POLICY_DIR")},
			&cli.StringFlag{Name: "algorithm", Destination: &cfg.TopLevelAlgorithm, Value: "denyOverrides", Sources: cli.EnvVars("SAPL_TOP_LEVEL_ALGORITHM")},
			&cli.StringFlag{Name: "log-level", Destination: &cfg.LogLevel, Value: cfg.LogLevel, Sources: cli.EnvVars("SAPL_LOG_LEVEL")},
			&cli.IntFlag{Name: "port", Destination: &cfg.ListenPort, Value: cfg.ListenPort, Sources: cli.EnvVars("SAPL_LISTEN_PORT")},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ctx = config.WithContext(ctx, &cfg)
			logger := logging.New(&cfg)

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

			mux := http.NewServeMux()
			mux.HandleFunc("/decide", decideHandler(&cfg, source, combine.Select(algo), logger))

			srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.ListenPort), Handler: mux}
			logger.Info("serving demo decision endpoint", "port", cfg.ListenPort)

			go func() {
				<-ctx.Done()
				srv.Close()
			}()
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

type subscriptionBody struct {
	Subject     json.RawMessage `json:"subject"`
	Action      json.RawMessage `json:"action"`
	Resource    json.RawMessage `json:"resource"`
	Environment json.RawMessage `json:"environment"`
}

func decideHandler(cfg *config.Config, source prp.Source, algo combine.Algorithm, logger *log.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body subscriptionBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sub, err := decodeSubscriptionBody(body)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		evalID := uuid.NewString()
		ectx := evalctx.Context{
			PdpID:           cfg.PdpID,
			ConfigurationID: cfg.ConfigurationID,
			EvaluationID:    evalID,
			Subscription:    sub,
		}

		dispatcher := dispatch.NewDispatcher()
		decisions := dispatcher.Dispatch(ectx, source, algo)
		first, ok := stream.First(r.Context(), decisions)
		if !ok {
			http.Error(w, "no decision produced", http.StatusGatewayTimeout)
			return
		}

		logger.Info("decision", "evaluationId", evalID, "entitlement", first.Entitlement.String())
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"entitlement": first.Entitlement.String()})
	}
}

func decodeSubscriptionBody(body subscriptionBody) (evalctx.Subscription, error) {
	parse := func(raw json.RawMessage) (value.Value, error) {
		if len(raw) == 0 {
			return value.Undefined(), nil
		}
		return value.ParseJSON(raw)
	}
	subject, err := parse(body.Subject)
	if err != nil {
		return evalctx.Subscription{}, err
	}
	action, err := parse(body.Action)
	if err != nil {
		return evalctx.Subscription{}, err
	}
	resource, err := parse(body.Resource)
	if err != nil {
		return evalctx.Subscription{}, err
	}
	environment, err := parse(body.Environment)
	if err != nil {
		return evalctx.Subscription{}, err
	}
	return evalctx.NewSubscription(subject, action, resource, environment), nil
}
