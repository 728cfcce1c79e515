// Package service exposes a set of named operations on the broker under one
// application name, and calls such operations from the other side.
//
// A service lists its endpoints; Adapt registers each one on
// "{appName}:{endpoint}" and starts listening. Callers use Call and Notify for
// typed endpoints, or a Proxy for endpoints that take positional and named
// arguments.
package service

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"go.uber.org/zap"

	"github.com/mrjvadi/litter/broker"
)

// PositionalKey is the body key positional arguments travel under.
const PositionalKey = "_"

// Endpoint is one named operation of a service.
type Endpoint struct {
	Name    string
	Handler broker.HandlerFunc
}

// Service is anything that can list its endpoints.
type Service interface {
	Endpoints() []Endpoint
}

// Endpoints adapts a plain slice to Service.
type Endpoints []Endpoint

func (e Endpoints) Endpoints() []Endpoint { return e }

// Channel is the channel an endpoint of appName listens on.
func Channel(appName, endpoint string) string {
	return appName + ":" + endpoint
}

// Adapt registers every endpoint of svc under appName and starts listening,
// on the calling goroutine unless background is set. With background set
// Adapt returns once the subscriptions are in place.
func Adapt(ctx context.Context, app *broker.App, svc Service, appName string, background bool) error {
	if err := validateName(appName); err != nil {
		return fmt.Errorf("adapt: app name: %w", err)
	}
	endpoints := svc.Endpoints()
	seen := make(map[string]struct{}, len(endpoints))
	for _, ep := range endpoints {
		if err := validateName(ep.Name); err != nil {
			return fmt.Errorf("adapt %s: endpoint: %w", appName, err)
		}
		if ep.Handler == nil {
			return fmt.Errorf("adapt %s: endpoint %q has no handler: %w", appName, ep.Name, broker.ErrConfig)
		}
		if _, dup := seen[ep.Name]; dup {
			return fmt.Errorf("adapt %s: endpoint %q listed twice: %w", appName, ep.Name, broker.ErrConfig)
		}
		seen[ep.Name] = struct{}{}
	}

	app.SetAppName(appName)
	log := app.Logger()
	log.Info("adapting service", zap.String("app", appName), zap.Int("endpoints", len(endpoints)))
	for _, ep := range endpoints {
		app.Handle(Channel(appName, ep.Name), ep.Handler)
		log.Info("endpoint registered", zap.String("endpoint", ep.Name))
	}

	if background {
		return app.ListenBackground(ctx)
	}
	return app.Listen(ctx)
}

// validateName rejects names that are empty, contain whitespace or would act
// as a wildcard in a subscription pattern.
func validateName(name string) error {
	if name == "" || strings.ContainsAny(name, "*?[]") || strings.IndexFunc(name, unicode.IsSpace) >= 0 {
		return fmt.Errorf("%w %q", broker.ErrInvalidChannel, name)
	}
	return nil
}
