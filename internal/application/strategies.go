package application

import (
	"context"
	"strings"

	"github.com/ericfisherdev/ogcard/internal/domain/model"
	"github.com/ericfisherdev/ogcard/internal/domain/port/driven"
)

// ResolverStrategy locates the resolver of a normalized ENS name. It returns
// (nil, nil) when it has no answer, letting the next strategy try.
type ResolverStrategy interface {
	Name() string
	Resolve(ctx context.Context, name string) (*model.ResolverHandle, error)
}

// DefaultStrategies builds the lookup chain: JustaName, registry, suffix table,
// public resolver. A nil api or chain drops its strategy, and an empty
// publicResolver drops the fallback.
func DefaultStrategies(api driven.RecordsAPI, chain driven.ChainClient, suffixes map[string]string, publicResolver string) []ResolverStrategy {
	var strategies []ResolverStrategy
	if api != nil {
		strategies = append(strategies, &justaNameStrategy{api: api})
	}
	if chain != nil {
		strategies = append(strategies, &registryStrategy{chain: chain})
	}
	if len(suffixes) > 0 {
		strategies = append(strategies, newSuffixStrategy(suffixes))
	}
	if publicResolver != "" {
		strategies = append(strategies, &publicStrategy{address: publicResolver})
	}
	return strategies
}

type justaNameStrategy struct {
	api driven.RecordsAPI
}

func (s *justaNameStrategy) Name() string { return string(model.ResolverSourceJustaName) }

func (s *justaNameStrategy) Resolve(ctx context.Context, name string) (*model.ResolverHandle, error) {
	records, err := s.api.LookupRecords(ctx, name)
	if err != nil || records == nil {
		return nil, err
	}

	handle := &model.ResolverHandle{
		Name:     name,
		Address:  records.ResolverAddress,
		Source:   model.ResolverSourceJustaName,
		Offchain: records.IsJAN,
	}
	if text, ok := records.Texts[model.TextRecordKey]; ok {
		handle.Record = text
		handle.HasRecord = true
	}

	// Known to the service but neither hosted there nor pointing anywhere.
	if !handle.Offchain && handle.Address == "" && !handle.HasRecord {
		return nil, nil
	}
	return handle, nil
}

type registryStrategy struct {
	chain driven.ChainClient
}

func (s *registryStrategy) Name() string { return string(model.ResolverSourceRegistry) }

func (s *registryStrategy) Resolve(ctx context.Context, name string) (*model.ResolverHandle, error) {
	addr, err := s.chain.ResolverOf(ctx, name)
	if err != nil || addr == "" {
		return nil, err
	}
	return &model.ResolverHandle{Name: name, Address: addr, Source: model.ResolverSourceRegistry}, nil
}

// suffixStrategy maps parent names to the resolver their subnames use.
// The longest matching suffix wins.
type suffixStrategy struct {
	suffixes map[string]string
}

func newSuffixStrategy(suffixes map[string]string) *suffixStrategy {
	normalized := make(map[string]string, len(suffixes))
	for suffix, addr := range suffixes {
		normalized[strings.Trim(strings.ToLower(strings.TrimSpace(suffix)), ".")] = addr
	}
	return &suffixStrategy{suffixes: normalized}
}

func (s *suffixStrategy) Name() string { return string(model.ResolverSourceSuffix) }

func (s *suffixStrategy) Resolve(_ context.Context, name string) (*model.ResolverHandle, error) {
	var best string
	for suffix := range s.suffixes {
		if (name == suffix || strings.HasSuffix(name, "."+suffix)) && len(suffix) > len(best) {
			best = suffix
		}
	}
	if best == "" {
		return nil, nil
	}
	return &model.ResolverHandle{Name: name, Address: s.suffixes[best], Source: model.ResolverSourceSuffix}, nil
}

type publicStrategy struct {
	address string
}

func (s *publicStrategy) Name() string { return string(model.ResolverSourcePublic) }

func (s *publicStrategy) Resolve(_ context.Context, name string) (*model.ResolverHandle, error) {
	return &model.ResolverHandle{Name: name, Address: s.address, Source: model.ResolverSourcePublic}, nil
}
