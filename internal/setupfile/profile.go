package setupfile

import (
	"strings"

	"github.com/tfunk1030/setupcompare/pkg/setup"
)

// Parameter keys carrying car and track metadata.
const (
	keyCarModel      = "car.model"
	keyTrackName     = "track.name"
	keyTrackCategory = "track.category"
)

// InferProfile reads car and track metadata embedded in either setup,
// preferring the baseline. Fields with no matching parameter stay empty.
func InferProfile(baseline, candidate setup.File) setup.Profile {
	return setup.Profile{
		CarModel:      find(keyCarModel, baseline, candidate),
		TrackName:     find(keyTrackName, baseline, candidate),
		TrackCategory: find(keyTrackCategory, baseline, candidate),
	}
}

// Merge fills empty fields of p from inferred.
func Merge(p, inferred setup.Profile) setup.Profile {
	if p.CarModel == "" {
		p.CarModel = inferred.CarModel
	}

	if p.TrackName == "" {
		p.TrackName = inferred.TrackName
	}

	if p.TrackCategory == "" {
		p.TrackCategory = inferred.TrackCategory
	}

	return p
}

func find(fragment string, files ...setup.File) string {
	for _, f := range files {
		for _, p := range f.Parameters {
			if !strings.Contains(p.Key, fragment) {
				continue
			}

			if s := strings.TrimSpace(p.Value.String()); s != "" {
				return s
			}
		}
	}

	return ""
}
