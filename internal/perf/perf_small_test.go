//go:build perf

package perf

import (
	"testing"

	"github.com/signalsfoundry/orbitview/core"
)

var smallConfig = perfConfig{
	Satellites: 100,
	NumPoints:  100,
	Workers:    0,
}

func BenchmarkBatchKeplerSmall(b *testing.B) {
	benchmarkBatch(b, smallConfig, core.PropagatorKepler)
}

func BenchmarkBatchSGP4Small(b *testing.B) {
	benchmarkBatch(b, smallConfig, core.PropagatorSGP4)
}

func BenchmarkTrajectoryRPCUncachedSmall(b *testing.B) {
	benchmarkTrajectoryRPC(b, smallConfig, 0)
}

func BenchmarkTrajectoryRPCCachedSmall(b *testing.B) {
	benchmarkTrajectoryRPC(b, smallConfig, smallConfig.Satellites)
}
