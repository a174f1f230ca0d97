package profile

import (
	"context"
	"sync"

	"github.com/koyak/kombat_backend/internal/logging"
)

// Service runs the full fighter-creation pipeline: route URLs to platforms,
// scrape each one concurrently, aggregate the payloads and synthesize a
// persona.
type Service struct {
	scraper    *Scraper
	profiler   *PersonaProfiler
	aggregator Aggregator
}

// NewService wires the pipeline together
func NewService(scraper *Scraper, profiler *PersonaProfiler) *Service {
	return &Service{scraper: scraper, profiler: profiler}
}

// CreatePersona builds a fighter persona from social profile URLs. Unknown
// URLs are skipped; with no usable platform at all the profiler still runs
// on the empty-data block and degrades to the fallback persona.
func (s *Service) CreatePersona(ctx context.Context, urls []string) *FighterPersona {
	routed := RouteURLs(urls)

	targetName := "Digital Twin"
	for _, platform := range SupportedPlatforms() {
		if infos := routed[platform]; len(infos) > 0 {
			targetName = infos[0].Username
			break
		}
	}

	type scrapeResult struct {
		platform string
		data     interface{}
	}

	var wg sync.WaitGroup
	results := make(chan scrapeResult)
	for platform, infos := range routed {
		if platform == PlatformUnknown {
			continue
		}
		for _, info := range infos {
			wg.Add(1)
			go func(platform, username string) {
				defer wg.Done()
				results <- scrapeResult{platform: platform, data: s.scraper.ScrapePlatform(ctx, platform, username)}
			}(platform, info.Username)
		}
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	platformData := make(map[string]interface{})
	for res := range results {
		if res.data != nil {
			platformData[res.platform] = res.data
		}
	}

	aggregated := s.aggregator.Aggregate(platformData)

	logging.Info("Synthesizing fighter persona", map[string]interface{}{
		"target":    targetName,
		"platforms": len(platformData),
		"urls":      len(urls),
	})

	return s.profiler.GeneratePersona(ctx, aggregated, targetName)
}
