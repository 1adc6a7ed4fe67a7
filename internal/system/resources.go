package system

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// MinFreeMemory is kept free when the worker caches decoded bitmaps.
const MinFreeMemory = 256 << 20

// Resources is a snapshot of the host.
type Resources struct {
	LogicalCPUs     int
	PhysicalCPUs    int
	TotalMemory     uint64
	AvailableMemory uint64
	UsedPercent     float64
}

func ResourceReport() (Resources, error) {
	var r Resources
	vm, err := mem.VirtualMemory()
	if err != nil {
		return r, fmt.Errorf("не удалось получить данные о памяти: %w", err)
	}
	r.TotalMemory, r.AvailableMemory, r.UsedPercent = vm.Total, vm.Available, vm.UsedPercent

	if r.LogicalCPUs, err = cpu.Counts(true); err != nil {
		return r, fmt.Errorf("не удалось получить число ядер: %w", err)
	}
	if r.PhysicalCPUs, err = cpu.Counts(false); err != nil {
		r.PhysicalCPUs = r.LogicalCPUs
	}
	return r, nil
}

func (r Resources) String() string {
	return fmt.Sprintf("CPU: %d (%d физ.), память: %.1f/%.1f ГБ свободно (%.0f%% занято)",
		r.LogicalCPUs, r.PhysicalCPUs,
		float64(r.AvailableMemory)/(1<<30), float64(r.TotalMemory)/(1<<30), r.UsedPercent)
}

// CheckHeadroom fails when allocating need bytes would leave less than MinFreeMemory.
func CheckHeadroom(need uint64) error {
	vm, err := mem.VirtualMemory()
	if err != nil {
		// no data, do not block decoding
		return nil
	}
	return headroom(vm.Available, need)
}

func headroom(available, need uint64) error {
	if available < need || available-need < MinFreeMemory {
		return fmt.Errorf("недостаточно памяти: нужно %d МБ, свободно %d МБ", need>>20, available>>20)
	}
	return nil
}

// MediaInfo is the part of an ffprobe report the compositor uses.
type MediaInfo struct {
	Duration float64
	Width    int
	Height   int
	HasAudio bool
	HasVideo bool
}

type probeReport struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
	} `json:"streams"`
}

// ProbeMedia runs ffprobe on path.
func ProbeMedia(path string) (MediaInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return parseProbe(out)
}

func parseProbe(out string) (MediaInfo, error) {
	var rep probeReport
	if err := json.Unmarshal([]byte(out), &rep); err != nil {
		return MediaInfo{}, fmt.Errorf("ffprobe: %w", err)
	}
	var info MediaInfo
	if rep.Format.Duration != "" {
		d, err := strconv.ParseFloat(rep.Format.Duration, 64)
		if err != nil {
			return info, fmt.Errorf("ffprobe duration %q: %w", rep.Format.Duration, err)
		}
		info.Duration = d
	}
	for _, s := range rep.Streams {
		switch s.CodecType {
		case "video":
			if !info.HasVideo {
				info.Width, info.Height = s.Width, s.Height
			}
			info.HasVideo = true
		case "audio":
			info.HasAudio = true
		}
	}
	return info, nil
}
