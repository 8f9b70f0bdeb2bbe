package sensor

import (
	"math"
	"math/rand"
	"time"

	"github.com/tenacious60/aquahealthmonitor/pkg/waterhealth"
)

// Generator produces bounded synthetic water measurements for one device.
type Generator struct {
	deviceID string
	rng      *rand.Rand
}

// NewGenerator creates a generator for the device. A zero seed draws from
// the clock.
func NewGenerator(deviceID string, seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{
		deviceID: deviceID,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// GeneratePH returns a pH in [6.6, 8.4], one decimal place.
func (g *Generator) GeneratePH() float64 {
	ph := 6.6 + g.rng.Float64()*1.8
	return math.Round(ph*10) / 10
}

// GenerateTurbidity returns one of the four clarity categories.
func (g *Generator) GenerateTurbidity() waterhealth.Turbidity {
	return waterhealth.TurbidityLevels[g.rng.Intn(len(waterhealth.TurbidityLevels))]
}

// GenerateBacteria reports contamination with 25% probability.
func (g *Generator) GenerateBacteria() string {
	if g.rng.Float64() < 0.25 {
		return "yes"
	}
	return "no"
}

// GenerateBattery returns a charge level in [50, 100].
func (g *Generator) GenerateBattery() int {
	return 50 + g.rng.Intn(51)
}

// GenerateReading produces one complete reading stamped now.
func (g *Generator) GenerateReading() *waterhealth.SensorReading {
	return &waterhealth.SensorReading{
		DeviceID:   g.deviceID,
		Battery:    g.GenerateBattery(),
		PH:         g.GeneratePH(),
		Turbidity:  g.GenerateTurbidity(),
		Bacteria:   g.GenerateBacteria(),
		CapturedAt: time.Now(),
	}
}
