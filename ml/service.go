package ml

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"orthorec/prosthesis"
)

// ServiceConfig configures the recommendation facade.
type ServiceConfig struct {
	Network   NetworkConfig
	CacheSize int
}

func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		Network:   DefaultNetworkConfig(),
		CacheSize: 256,
	}
}

// Service is the recommendation facade. It owns the catalogs, the
// trained classifier pair and the rule-based fallback, and is safe for
// concurrent use: models and catalogs are read-only between the
// initialization/reload points.
type Service struct {
	config ServiceConfig
	logger *zap.Logger
	cache  *lru.Cache[string, *Recommendation]

	initOnce sync.Once
	onHit    func()

	mu       sync.RWMutex
	dataset  *prosthesis.Dataset
	fallback *FallbackScorer
	material Classifier
	fixation Classifier
	trainErr error
}

// NewService wires the facade around a validated dataset. Training does
// not happen here; call Initialize.
func NewService(dataset *prosthesis.Dataset, config ServiceConfig, logger *zap.Logger) (*Service, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	size := config.CacheSize
	if size <= 0 {
		size = 256
	}
	cache, err := lru.New[string, *Recommendation](size)
	if err != nil {
		return nil, err
	}
	return &Service{
		config:   config,
		logger:   logger,
		cache:    cache,
		dataset:  dataset,
		fallback: NewFallbackScorer(dataset),
	}, nil
}

// OnCacheHit registers a callback fired whenever Recommend serves a
// cached result. Set before serving traffic; not synchronized.
func (s *Service) OnCacheHit(hook func()) {
	s.onHit = hook
}

// Initialize trains both classifiers once. Idempotent: concurrent first
// callers block on the same training run, later calls are no-ops. A
// training failure is returned (and remembered) but never disables the
// service; Recommend keeps working through the rule-based fallback.
func (s *Service) Initialize() error {
	s.initOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.train()
	})
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trainErr
}

// train fits both models against the current dataset. Caller holds mu.
func (s *Service) train() {
	material, fixation, err := TrainModels(s.dataset, s.config.Network)
	if err != nil {
		s.trainErr = err
		s.material = nil
		s.fixation = nil
		s.logger.Warn("classifier training failed, running rules-only",
			zap.Error(err))
		return
	}
	s.material = material
	s.fixation = fixation
	s.trainErr = nil
	// Results cached while rules-only must not outlive the trained pair.
	s.cache.Purge()
	s.logger.Info("classifier pair trained",
		zap.Int("corpus", len(s.dataset.TrainingData)),
		zap.Int("materials", len(s.dataset.Materials)),
		zap.Int("fixations", len(s.dataset.FixationMethods)))
}

// Reload swaps in a new dataset and retrains, for the dataset watcher.
func (s *Service) Reload(dataset *prosthesis.Dataset) error {
	if err := dataset.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dataset = dataset
	s.fallback = NewFallbackScorer(dataset)
	s.train()
	s.cache.Purge()
	return s.trainErr
}

// SetClassifiers installs pre-trained models (e.g. weights loaded from
// disk) instead of training at startup. Also the seam tests use to
// inject failing models.
func (s *Service) SetClassifiers(material, fixation Classifier) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.material = material
	s.fixation = fixation
	s.trainErr = nil
	s.cache.Purge()
}

// Ready reports whether the trained pair is available. False means
// Recommend serves rule-based results.
func (s *Service) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.material != nil && s.fixation != nil
}

// TrainingError returns the remembered initialization failure, if any.
func (s *Service) TrainingError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.trainErr
}

// Dataset returns the active catalogs.
func (s *Service) Dataset() *prosthesis.Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dataset
}

// Recommend produces the ranked recommendation for a profile. The model
// path is tried first; any failure there (untrained pair, predict or
// perturbation error) redirects to the rule-based fallback, so the
// caller always receives a structurally complete result. The error
// return is reserved for the fallback itself failing, which indicates a
// catalog integrity bug.
func (s *Service) Recommend(profile prosthesis.PatientProfile) (*Recommendation, error) {
	features := Encode(profile)
	key := cacheKey(features)
	if cached, ok := s.cache.Get(key); ok {
		if s.onHit != nil {
			s.onHit()
		}
		return cached, nil
	}

	s.mu.RLock()
	dataset := s.dataset
	fallback := s.fallback
	material := s.material
	fixation := s.fixation
	s.mu.RUnlock()

	result, err := recommendWithModels(profile, features, dataset, material, fixation)
	if err != nil {
		s.logger.Warn("model prediction failed, using rule-based fallback",
			zap.Error(err))
		result, err = fallback.Predict(profile)
		if err != nil {
			return nil, err
		}
	}

	s.cache.Add(key, result)
	return result, nil
}

func recommendWithModels(profile prosthesis.PatientProfile, features []float64, dataset *prosthesis.Dataset, material, fixation Classifier) (*Recommendation, error) {
	if material == nil || fixation == nil {
		return nil, errNotReady
	}

	materialProbs, err := material.Predict(features)
	if err != nil {
		return nil, err
	}
	if len(materialProbs) != len(dataset.Materials) {
		return nil, fmt.Errorf("material distribution has %d classes, want %d",
			len(materialProbs), len(dataset.Materials))
	}
	fixationProbs, err := fixation.Predict(features)
	if err != nil {
		return nil, err
	}
	if len(fixationProbs) != len(dataset.FixationMethods) {
		return nil, fmt.Errorf("fixation distribution has %d classes, want %d",
			len(fixationProbs), len(dataset.FixationMethods))
	}

	materials := rankMaterialProbs(dataset.Materials, materialProbs)
	fixations := rankFixationProbs(dataset.FixationMethods, fixationProbs)

	importance, err := EstimateImportance(profile, material, fixation)
	if err != nil {
		return nil, err
	}

	return &Recommendation{
		RecommendedMaterial: materials[0],
		MaterialOptions:     materials,
		RecommendedFixation: fixations[0],
		FixationOptions:     fixations,
		FeatureImportance:   importance,
		Source:              SourceModel,
	}, nil
}

// rankMaterialProbs maps a probability distribution onto the catalog
// (index i belongs to catalog item i) and sorts descending by rounded
// confidence, ties keeping catalog order.
func rankMaterialProbs(catalog []prosthesis.Material, probs []float64) []ScoredMaterial {
	ranked := make([]ScoredMaterial, len(catalog))
	for i, m := range catalog {
		ranked[i] = ScoredMaterial{
			Material:   m,
			Confidence: int(math.Round(probs[i] * 100)),
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Confidence > ranked[b].Confidence
	})
	return ranked
}

func rankFixationProbs(catalog []prosthesis.FixationMethod, probs []float64) []ScoredFixation {
	ranked := make([]ScoredFixation, len(catalog))
	for i, f := range catalog {
		ranked[i] = ScoredFixation{
			FixationMethod: f,
			Confidence:     int(math.Round(probs[i] * 100)),
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Confidence > ranked[b].Confidence
	})
	return ranked
}

func cacheKey(features []float64) string {
	buf := make([]byte, 0, len(features)*10)
	for _, f := range features {
		buf = strconv.AppendFloat(buf, f, 'f', 6, 64)
		buf = append(buf, '|')
	}
	return string(buf)
}
