package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"network_controller/internal/app/port"
	"network_controller/internal/domain/entity"
)

var validate = validator.New()

// maxSafeChainID is the largest integer a float64 represents exactly (2^53 - 1).
var maxSafeChainID = big.NewInt(1<<53 - 1)

var prefixedHexChainID = regexp.MustCompile(`^0x[1-9a-fA-F][0-9a-fA-F]*$`)

// networkSwitcher activates a registry entry.
type networkSwitcher interface {
	SetActiveNetwork(ctx context.Context, id string) error
}

// NetworkRegistry keeps the user's custom networks, unique by case-insensitive RPC URL.
type NetworkRegistry struct {
	store    port.StateStore
	metrics  port.MetricsRecorder
	switcher networkSwitcher
	logger   port.Logger
}

// NewNetworkRegistry creates a registry over the controller state.
func NewNetworkRegistry(
	store port.StateStore,
	metrics port.MetricsRecorder,
	switcher networkSwitcher,
	l port.Logger,
) *NetworkRegistry {
	return &NetworkRegistry{
		store:    store,
		metrics:  metrics,
		switcher: switcher,
		logger:   l,
	}
}

// Upsert adds entry, or updates the entry with the same RPC URL keeping its id, and returns
// the id. Only inserts are reported to the metrics sink. With opts.SetActive the controller
// switches to the entry afterwards.
func (r *NetworkRegistry) Upsert(ctx context.Context, entry entity.NetworkRegistryEntry, opts port.UpsertOptions) (string, error) {
	if err := validateEntry(entry, opts); err != nil {
		return "", err
	}

	var (
		id       string
		inserted bool
	)
	r.store.Update(func(state *entity.ControllerState) {
		for i, existing := range state.NetworkConfigurations {
			if existing.MatchesURL(entry.RPCURL) {
				id = existing.ID
				updated := entry.Clone()
				updated.ID = id
				state.NetworkConfigurations[i] = updated
				return
			}
		}
		id = uuid.NewString()
		inserted = true
		added := entry.Clone()
		added.ID = id
		state.NetworkConfigurations = append(state.NetworkConfigurations, added)
	})

	if inserted {
		r.logger.Info("Custom network added", "id", id, "chainId", entry.ChainID, "rpcUrl", entry.RPCURL)
		r.metrics.TrackEvent(entity.MetricsEvent{
			Event:    entity.EventCustomNetworkAdded,
			Category: entity.EventCategoryNetwork,
			Referrer: opts.Referrer,
			Properties: map[string]any{
				"chain_id": entry.ChainID,
				"symbol":   entry.Ticker,
				"source":   opts.Source,
			},
		})
	} else {
		r.logger.Debug("Custom network updated", "id", id, "chainId", entry.ChainID)
	}

	if opts.SetActive {
		if err := r.switcher.SetActiveNetwork(ctx, id); err != nil {
			return id, err
		}
	}
	return id, nil
}

// Remove deletes the entry with the given id. The active network is left alone even when
// it was built from this entry.
func (r *NetworkRegistry) Remove(id string) error {
	if _, ok := r.store.Get().FindNetworkConfiguration(id); !ok {
		return fmt.Errorf("%w: network configuration %q", entity.ErrNotFound, id)
	}
	r.store.Update(func(state *entity.ControllerState) {
		kept := state.NetworkConfigurations[:0]
		for _, e := range state.NetworkConfigurations {
			if e.ID != id {
				kept = append(kept, e)
			}
		}
		state.NetworkConfigurations = kept
	})
	r.logger.Info("Custom network removed", "id", id)
	return nil
}

// List returns the registry entries in insertion order.
func (r *NetworkRegistry) List() []entity.NetworkRegistryEntry {
	return r.store.Get().NetworkConfigurations
}

func validateEntry(entry entity.NetworkRegistryEntry, opts port.UpsertOptions) error {
	if err := validate.Struct(entry); err != nil {
		return validationError(err)
	}
	if err := validate.Struct(opts); err != nil {
		return validationError(err)
	}
	if err := validateChainID(entry.ChainID); err != nil {
		return err
	}
	return nil
}

func validateChainID(chainID string) error {
	if !prefixedHexChainID.MatchString(chainID) {
		return fmt.Errorf("%w: chain id %q must be a 0x-prefixed hexadecimal string", entity.ErrValidation, chainID)
	}
	n, ok := new(big.Int).SetString(chainID[2:], 16)
	if !ok || n.Sign() <= 0 || n.Cmp(maxSafeChainID) > 0 {
		return fmt.Errorf("%w: chain id %q is outside the safe integer range", entity.ErrValidation, chainID)
	}
	return nil
}

func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", entity.ErrValidation, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", entity.ErrValidation, strings.Join(msgs, "; "))
}
