package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/lessonforge/internal/audio"
	"github.com/yungbote/lessonforge/internal/clients/openai"
	"github.com/yungbote/lessonforge/internal/config"
	"github.com/yungbote/lessonforge/internal/data/runstore"
	"github.com/yungbote/lessonforge/internal/domain"
	"github.com/yungbote/lessonforge/internal/pipeline"
	"github.com/yungbote/lessonforge/internal/platform/env"
	"github.com/yungbote/lessonforge/internal/platform/logger"
	"github.com/yungbote/lessonforge/internal/platform/media"
	"github.com/yungbote/lessonforge/internal/render"
	"github.com/yungbote/lessonforge/internal/services"
	"github.com/yungbote/lessonforge/internal/timeline"
)

type cliFlags struct {
	outDir      string
	quality     string
	voice       string
	speechModel string
	promptModel string
	stylePath   string
	defaults    string
	dryRun      bool
	dbPath      string
}

// runtime bundles everything the subcommands share, built once per
// invocation after flags are parsed.
type runtime struct {
	log       *logger.Logger
	style     domain.StyleTokens
	defaults  map[string]any
	ai        openai.Client
	media     media.Tools
	expansion services.PromptExpansionService
	narration services.NarrationSynthesisService
	assembler pipeline.Assembler
	preset    render.QualityPreset
}

func main() {
	flags := &cliFlags{}

	root := &cobra.Command{
		Use:           "lessonforge",
		Short:         "Turn a short prompt into a narrated instructional video",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flags.outDir, "out", "output", "artifact root directory")
	root.PersistentFlags().StringVar(&flags.quality, "quality", "medium", "render quality (low|medium|high)")
	root.PersistentFlags().StringVar(&flags.voice, "voice", "", "speech voice")
	root.PersistentFlags().StringVar(&flags.speechModel, "speech-model", "", "speech synthesis model")
	root.PersistentFlags().StringVar(&flags.promptModel, "prompt-model", "", "prompt expansion model")
	root.PersistentFlags().StringVar(&flags.stylePath, "style", "", "style tokens JSON file")
	root.PersistentFlags().StringVar(&flags.defaults, "defaults", "", "defaults YAML file")
	root.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "skip external services, use deterministic fallbacks")
	root.PersistentFlags().StringVar(&flags.dbPath, "db", "", "optional run-history sqlite database")

	root.AddCommand(
		newGenCmd(flags),
		newSynthCmd(flags),
		newPreviewCmd(flags),
		newRenderCmd(flags),
		newFramesCmd(flags),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRuntime(flags *cliFlags) (*runtime, error) {
	log, err := logger.New(env.Get("LOG_MODE", "dev", logger.Nop()))
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	style, err := config.LoadStyleTokens(flags.stylePath)
	if err != nil {
		return nil, err
	}
	defaults, err := config.LoadDefaults(flags.defaults)
	if err != nil {
		return nil, err
	}
	preset, err := render.PresetByName(flags.quality)
	if err != nil {
		return nil, err
	}

	var ai openai.Client
	if !flags.dryRun {
		ai, err = openai.NewClient(log)
		if err != nil {
			log.Warn("speech/expansion backend unavailable, using offline fallbacks", "error", err)
			ai = nil
		}
	}

	tools := media.New(log)
	renderer, err := render.NewSceneRenderer(log, tools)
	if err != nil {
		return nil, err
	}

	var recorder pipeline.RunRecorder
	if flags.dbPath != "" {
		store, err := runstore.NewSQLiteService(log, flags.dbPath)
		if err != nil {
			return nil, err
		}
		recorder = runstore.NewRenderRunRepo(store.DB(), log)
	}

	assembler, err := pipeline.NewAssembler(log, renderer, tools, recorder)
	if err != nil {
		return nil, err
	}

	return &runtime{
		log:      log,
		style:    style,
		defaults: defaults,
		ai:       ai,
		media:    tools,
		expansion: services.NewPromptExpansionService(log, ai, services.PromptExpansionOptions{
			Model:   flags.promptModel,
			Offline: flags.dryRun,
		}),
		narration: services.NewNarrationSynthesisService(log, ai, tools, services.NarrationOptions{
			Voice:   flags.voice,
			Model:   flags.speechModel,
			Offline: flags.dryRun,
		}),
		assembler: assembler,
		preset:    preset,
	}, nil
}

func newGenCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "gen <prompt>",
		Short: "Expand a prompt into a lesson spec",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			prompt := strings.Join(args, " ")
			lesson, err := rt.expansion.Expand(cmd.Context(), prompt, rt.style, rt.defaults)
			if err != nil {
				return fmt.Errorf("prompt expansion stage failed: %w", err)
			}

			specPath := filepath.Join(flags.outDir, lesson.LessonID+".lesson.json")
			if err := domain.SaveLesson(lesson, specPath); err != nil {
				return err
			}
			cmd.Println(specPath)
			return nil
		},
	}
}

func newSynthCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "synth <lesson.json>",
		Short: "Synthesize narration audio and the alignment manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			lesson, err := domain.LoadLesson(args[0])
			if err != nil {
				return err
			}
			_, manifestPath, err := rt.narration.Synthesize(cmd.Context(), lesson, flags.outDir)
			if err != nil {
				return fmt.Errorf("narration stage failed: %w", err)
			}
			cmd.Println(manifestPath)
			return nil
		},
	}
}

func newPreviewCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <lesson.json>",
		Short: "Render low-quality clips of every scene",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			req, err := rt.buildRequest(cmd, flags, args[0])
			if err != nil {
				return err
			}
			res, err := rt.assembler.Preview(cmd.Context(), *req)
			if err != nil {
				return err
			}
			cmd.Println(res.ManifestPath)
			return nil
		},
	}
}

func newRenderCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "render <lesson.json>",
		Short: "Run the full pipeline to one final video",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			if err := rt.media.AssertReady(cmd.Context()); err != nil {
				return err
			}
			req, err := rt.buildRequest(cmd, flags, args[0])
			if err != nil {
				return err
			}
			res, err := rt.assembler.Render(cmd.Context(), *req)
			if err != nil {
				return err
			}
			cmd.Println(res.ArtifactPath)
			return nil
		},
	}
}

func newFramesCmd(flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "frames <lesson.json>",
		Short: "Export one representative frame per scene (requires preview renders)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := newRuntime(flags)
			if err != nil {
				return err
			}
			defer rt.log.Sync()

			req, err := rt.buildRequest(cmd, flags, args[0])
			if err != nil {
				return err
			}
			frames, err := rt.assembler.ExportFrames(cmd.Context(), *req)
			if err != nil {
				return err
			}
			for _, f := range frames {
				cmd.Println(f)
			}
			return nil
		},
	}
}

// buildRequest loads the lesson, derives its timeline, and loads the
// alignment manifest, synthesizing narration first when no manifest
// exists yet.
func (rt *runtime) buildRequest(cmd *cobra.Command, flags *cliFlags, specPath string) (*pipeline.Request, error) {
	lesson, err := domain.LoadLesson(specPath)
	if err != nil {
		return nil, err
	}
	tl, err := timeline.Build(lesson)
	if err != nil {
		return nil, fmt.Errorf("timeline stage failed: %w", err)
	}

	manifestPath := filepath.Join(flags.outDir, lesson.LessonID, "audio", "manifest.json")
	if _, err := os.Stat(manifestPath); err != nil {
		rt.log.Info("no alignment manifest found, synthesizing narration", "lesson_id", lesson.LessonID)
		if _, manifestPath, err = rt.narration.Synthesize(cmd.Context(), lesson, flags.outDir); err != nil {
			return nil, fmt.Errorf("narration stage failed: %w", err)
		}
	}

	alignment, audioDir, err := audio.LoadManifest(manifestPath)
	if err != nil {
		return nil, err
	}

	return &pipeline.Request{
		Lesson:    lesson,
		Timeline:  tl,
		Alignment: alignment,
		AudioDir:  audioDir,
		OutputDir: flags.outDir,
		Preset:    rt.preset,
	}, nil
}
