package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/ivlev/audiocanvas/internal/config"
	"github.com/ivlev/audiocanvas/internal/engine"
	"github.com/ivlev/audiocanvas/internal/geometry"
	"github.com/ivlev/audiocanvas/internal/scene"
	"github.com/ivlev/audiocanvas/internal/system"
	"github.com/ivlev/audiocanvas/internal/visualizer"
)

var version = "dev"

func main() {
	// Увеличиваем лимиты системы (для macOS/Linux)
	system.InitResourceLimits()

	// Создаем нужные директории, если их нет
	dirs := []string{"input/audio", "input/slides", "input/scenes", "output"}
	for _, d := range dirs {
		os.MkdirAll(d, 0755)
	}

	configPtr := flag.String("config", "", "YAML-файл проекта (значения флагов имеют приоритет)")
	envPtr := flag.String("env", ".env", "Файл переменных окружения AUDIOCANVAS_*")
	flag.String("scene", "", "Файл сцены .yaml (по умолчанию: самый свежий в input/scenes/)")
	flag.String("audio", "", "Путь к аудио (по умолчанию: самый свежий файл в input/audio/)")
	flag.String("slides", "", "PDF или папка с изображениями для слайд-шоу")
	flag.String("output", "", "Путь к видео (если пусто, генерируется автоматически в output/)")
	flag.Float64("duration", 0, "Длительность видео (если 0, берется из аудио)")
	flag.Float64("slide-seconds", 5, "Длительность слайда, если нет ни аудио, ни -duration")
	flag.Int("width", 1920, "Ширина")
	flag.Int("height", 1080, "Высота")
	flag.String("preset", "16:9", "Пресет формата: 16:9, 9:16 (Shorts/TikTok), 4:5 (Instagram), 1:1; пусто - свои размеры")
	flag.Int("fps", 30, "FPS")
	flag.Int("dpi", 150, "DPI для страниц PDF")
	flag.Int("quality", 0, "Качество видео (0 - авто, x264: CRF 1-51, VideoToolbox: битрейт = Q*100кбит/с)")
	flag.String("visualizer", "bars", "Визуализатор: "+strings.Join(visualizer.Names(), ", "))
	flag.String("color", "#ffffff", "Цвет визуализатора")
	flag.Bool("transcode", false, "Отправить результат на сервер транскодирования")
	flag.String("transcode-quality", "high", "Пресет транскодирования: highest, high, medium, social, preview")
	flag.String("qr", "", "PNG с QR-кодом ссылки на результат транскодирования")
	flag.Bool("stats", false, "Показать статистику")
	initScenePtr := flag.String("init-scene", "", "Создать стартовую сцену в указанном файле и выйти")
	listPtr := flag.Bool("list", false, "Показать визуализаторы и пресеты и выйти")

	flag.Parse()

	if *listPtr {
		fmt.Printf("Визуализаторы: %s\n", strings.Join(visualizer.Names(), ", "))
		for _, p := range config.Presets() {
			fmt.Printf("Пресет %-5s %dx%d\n", p.Name, p.Width, p.Height)
		}
		return
	}

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка конфигурации: %v", err)
		}
		cfg = loaded
		fmt.Printf("[*] Конфигурация: %s\n", *configPtr)
	}
	if err := cfg.LoadEnv(*envPtr); err != nil {
		log.Fatalf("[-] Ошибка окружения: %v", err)
	}
	if err := applyFlags(cfg); err != nil {
		log.Fatalf("[-] %v", err)
	}
	cfg.BuildVersion = version

	if *initScenePtr != "" {
		if err := initScene(cfg, *initScenePtr); err != nil {
			log.Fatalf("[-] Ошибка создания сцены: %v", err)
		}
		fmt.Printf("[+++] Сцена создана: %s\n", *initScenePtr)
		return
	}

	discoverInputs(cfg, "input")
	if cfg.OutputVideo == "" || cfg.OutputVideo == config.Default().OutputVideo {
		cfg.OutputVideo = outputName(cfg)
	}

	if res, err := system.ResourceReport(); err == nil {
		fmt.Printf("[*] %s\n", res)
	} else {
		log.Printf("[!] %v", err)
	}

	encoder := system.GetBestH264Encoder()
	if encoder != "libx264" {
		fmt.Printf("[*] Обнаружено аппаратное ускорение: %s\n", encoder)
	}
	cfg.VideoEncoder = encoder

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	project := engine.NewProject(cfg)
	if err := project.Load(); err != nil {
		log.Fatalf("[-] Ошибка загрузки проекта: %v", err)
	}
	if err := project.Run(ctx); err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}

	fmt.Printf("[+++] Успех! Результат: %s\n", cfg.OutputVideo)
}

// applyFlags copies only the flags given on the command line, so YAML and env values survive.
func applyFlags(cfg *config.Config) error {
	var err error
	flag.Visit(func(f *flag.Flag) {
		g, ok := f.Value.(flag.Getter)
		if !ok || err != nil {
			return
		}
		v := g.Get()
		switch f.Name {
		case "scene":
			cfg.ScenePath = v.(string)
		case "audio":
			cfg.AudioPath = v.(string)
		case "slides":
			cfg.SlidesPath = v.(string)
		case "output":
			cfg.OutputVideo = v.(string)
		case "duration":
			cfg.Duration = v.(float64)
		case "slide-seconds":
			cfg.SlideSeconds = v.(float64)
		case "width":
			cfg.Width = v.(int)
			cfg.Preset = ""
		case "height":
			cfg.Height = v.(int)
			cfg.Preset = ""
		case "preset":
			cfg.Preset = v.(string)
		case "fps":
			cfg.FPS = v.(int)
		case "dpi":
			cfg.DPI = v.(int)
		case "quality":
			cfg.Quality = v.(int)
		case "visualizer":
			if _, e := visualizer.New(v.(string)); e != nil {
				err = e
			}
			cfg.Visualizer.Name = v.(string)
		case "color":
			cfg.Visualizer.Color = v.(string)
		case "transcode":
			cfg.Transcode.Enabled = v.(bool)
		case "transcode-quality":
			cfg.Transcode.Quality = v.(string)
		case "qr":
			cfg.Transcode.QRPath = v.(string)
		case "stats":
			cfg.ShowStats = v.(bool)
		}
	})
	if err != nil {
		return err
	}
	// an explicit preset wins over explicit sizes
	if p := flag.Lookup("preset"); p != nil && isSet("preset") {
		cfg.Preset = p.Value.String()
	}
	return cfg.ApplyPreset()
}

func isSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// discoverInputs fills empty scene, audio and slides paths from the newest files under root.
func discoverInputs(cfg *config.Config, root string) {
	if cfg.ScenePath == "" {
		if latest, err := system.FindLatestScene(filepath.Join(root, "scenes")); err == nil {
			cfg.ScenePath = latest
			fmt.Printf("[*] Выбрана сцена: %s\n", cfg.ScenePath)
		}
	}
	if cfg.AudioPath == "" {
		if latest, err := system.FindLatestAudio(filepath.Join(root, "audio")); err == nil {
			cfg.AudioPath = latest
			fmt.Printf("[*] Выбрано аудио: %s\n", cfg.AudioPath)
		}
	}
	if cfg.SlidesPath == "" {
		slides := filepath.Join(root, "slides")
		if _, err := system.FindLatestImage(slides); err == nil {
			cfg.SlidesPath = slides
			fmt.Printf("[*] Слайды из папки: %s\n", cfg.SlidesPath)
		}
	}
}

func outputName(cfg *config.Config) string {
	nameSource := "audiocanvas"
	switch {
	case cfg.ScenePath != "":
		nameSource = cfg.ScenePath
	case cfg.AudioPath != "":
		nameSource = cfg.AudioPath
	case cfg.SlidesPath != "":
		nameSource = cfg.SlidesPath
	}
	baseName := filepath.Base(nameSource)
	nameOnly := strings.TrimSuffix(baseName, filepath.Ext(baseName))
	cleanName := strings.ReplaceAll(nameOnly, " ", "_")
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	return filepath.Join("output", fmt.Sprintf("%s_%s.mp4", cleanName, timestamp))
}

// initScene writes a starter scene: a background and a title for the chosen preset.
func initScene(cfg *config.Config, path string) error {
	s := scene.New()
	s.Add(scene.NewBackground(scene.Black))
	title := scene.NewText("Audio Canvas", 72, geometry.Rect{X: 0.1, Y: 0.1, W: 0.8, H: 0.15})
	title.Animation = scene.Fade{Enabled: true, FadeIn: 1}
	s.Add(title)

	sess := engine.NewSession(s, cfg.Width, cfg.Height, nil)
	if cfg.Preset != "" {
		if err := sess.SetPreset(cfg.Preset); err != nil {
			return err
		}
	}
	return sess.Save(path)
}
