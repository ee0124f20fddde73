package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"jarvis/internal/activation"
	"jarvis/internal/assistant"
	"jarvis/internal/audio"
	"jarvis/internal/command"
	"jarvis/internal/ipc"
	"jarvis/internal/listen"
	"jarvis/internal/notify"
	"jarvis/internal/proxy"
	"jarvis/internal/speak"
	"jarvis/pkg/audioconv"
	"jarvis/pkg/remote"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

// platformCaps answers the controller's capability queries from the
// environment: JARVIS_FORM_FACTOR=tv marks a living-room device with no
// discrete mute control.
type platformCaps struct {
	formFactor string
	hasMic     bool
}

func (p platformCaps) AlwaysOnDevice() bool     { return p.formFactor == "tv" }
func (p platformCaps) SupportsVoiceInput() bool { return p.hasMic }

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	socket := cli.String("socket", ipc.DefaultSocketPath, "Control socket path")
	hubURL := cli.String("hub", "", "Remote hub websocket url (empty: no hub)")
	modelPath := cli.StringP("model", "m", "third_party/whisper.cpp/models/ggml-base.en.bin", "Whisper model path")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy for the LLM API (empty: direct)")
	llmURL := cli.String("llm-url", "", "OpenAI-compatible base url (empty: api.openai.com)")
	llmModel := cli.String("llm-model", "gpt-5-nano", "Chat model name")
	soundPath := cli.String("sound", "beep.mp3", "Activation earcon")
	mute := cli.Bool("mute", false, "Log responses instead of speaking")
	noMic := cli.Bool("no-mic", false, "Run without microphone capture")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	caps := platformCaps{
		formFactor: strings.ToLower(os.Getenv("JARVIS_FORM_FACTOR")),
		hasMic:     !*noMic,
	}

	var (
		recognizer  activation.Recognizer
		transcriber *listen.Transcriber
		mic         *listen.Recorder
	)
	if !*noMic {
		rec := listen.NewRecorder()
		if err := rec.Init(); err != nil {
			log.Error("Failed to init audio", "err", err)
			os.Exit(1)
		}
		defer rec.Close()
		mic = rec

		tr, err := listen.NewTranscriber(*modelPath)
		if err != nil {
			log.Error("Failed to init whisper", "err", err)
			os.Exit(1)
		}
		defer tr.Close()
		transcriber = tr

		recognizer = listen.NewListener(rec, tr, listen.TranscribeOptions{Language: "en"})
		log.Debug("Loaded recorder and whisper")
	}

	proc := command.NewProcessor()
	ctrl := activation.NewController(caps, recognizer)
	if mic != nil {
		mic.OnActivity(ctrl.NotifyVoiceActivity)
	}

	var speaker assistant.Speaker = speak.NewEspeak(os.Getenv("JARVIS_VOICE"))
	if *mute {
		speaker = speak.Silent{}
	}

	asst := assistant.New(proc, ctrl, speaker, assistant.Config{})
	asst.SetDucker(audio.NewDucker([]string{"jarvisd"}, 0.3, 10))
	asst.SetNotifier(notify.NewDesktop(*soundPath))

	wireChatHandler(proc, *llmURL, *llmModel, *proxyAddr)

	srv, err := ipc.Serve(*socket, controlHandler(asst))
	if err != nil {
		log.Error("Failed to start control socket", "err", err)
		os.Exit(1)
	}
	defer srv.Close()
	log.Debug("Control socket up", "path", *socket)

	if *hubURL != "" {
		hub, err := remote.Dial(remote.Config{URL: *hubURL, Name: "jarvisd"},
			hubHandler(ctx, asst, transcriber))
		if err != nil {
			log.Error("Failed to reach hub", "url", *hubURL, "err", err)
			os.Exit(1)
		}
		go hub.Run(ctx)
	}

	if ctrl.Mode() == activation.ModeAlwaysOn {
		// Living-room devices listen from boot; toggle devices wait for
		// jarvis-ctl enable or a remote command.
		if !ctrl.Enable() {
			log.Error("Always-on device without working voice input")
			os.Exit(1)
		}
	}

	log.Info("Boot up - successful", "mode", ctrl.Mode().String())

	asst.Run(ctx)
}

// wireChatHandler points the chat intent at an OpenAI-compatible server.
// Without an API key or a local base url the canned fallback stays.
func wireChatHandler(proc *command.Processor, baseURL, model, proxyAddr string) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" && baseURL == "" {
		log.Warn("No OPENAI_API_KEY and no --llm-url; chat stays offline")
		return
	}

	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if proxyAddr != "" {
		httpClient, err := proxy.NewSocksClient(proxyAddr, 120*time.Second)
		if err != nil {
			log.Error("Failed to dial socks proxy", "proxy", proxyAddr, "err", err)
			os.Exit(1)
		}
		opts = append(opts, option.WithHTTPClient(httpClient))
	} else {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: 120 * time.Second}))
	}

	client := openai.NewClient(opts...)
	proc.Register(command.IntentChat, assistant.NewChatHandler(client, model))
	log.Debug("Chat handler wired", "model", model)
}

func controlHandler(asst *assistant.Assistant) func(ipc.Request) ipc.Reply {
	return func(req ipc.Request) ipc.Reply {
		ctrl := asst.Controller()
		switch req.Cmd {
		case "enable":
			if !ctrl.Enable() {
				return ipc.Reply{OK: false, Msg: "voice input unavailable"}
			}
			return ipc.Reply{OK: true, Msg: "listening"}
		case "disable":
			if !ctrl.Disable() {
				return ipc.Reply{OK: false, Msg: "refused: " + ctrl.Mode().String()}
			}
			return ipc.Reply{OK: true, Msg: "inactive"}
		case "toggle":
			active := ctrl.Toggle()
			return ipc.Reply{OK: true, Msg: map[bool]string{true: "listening", false: "inactive"}[active]}
		case "status":
			return ipc.Reply{OK: true, Msg: ctrl.State().String() + " (" + ctrl.Mode().String() + ")"}
		case "stats":
			return ipc.Reply{OK: true, Stats: asst.Processor().Stats()}
		case "say":
			res := asst.HandleText(context.Background(), req.Arg, command.SourceIPC)
			return ipc.Reply{OK: res.Success, Msg: res.Response}
		default:
			return ipc.Reply{OK: false, Msg: "unknown command: " + req.Cmd}
		}
	}
}

// hubHandler turns hub frames into commands: text goes straight to the
// pipeline, audio clips are decoded and transcribed first.
func hubHandler(ctx context.Context, asst *assistant.Assistant, tr *listen.Transcriber) func(*remote.Message) *remote.Message {
	return func(msg *remote.Message) *remote.Message {
		text := msg.Text

		if msg.Kind == remote.KindAudio {
			if tr == nil {
				return &remote.Message{OK: false, Text: "this daemon runs without speech recognition"}
			}
			pcm, err := audioconv.Decode(msg.Audio, msg.Format, audioconv.Options{MaxSamples: 16000 * 30})
			if err != nil {
				log.Warn("bad audio clip from hub", "err", err)
				return &remote.Message{OK: false, Text: "could not decode audio"}
			}
			text, err = tr.Transcribe(ctx, pcm, listen.TranscribeOptions{Language: "en"})
			if err != nil {
				log.Error("hub clip transcription failed", "err", err)
				return &remote.Message{OK: false, Text: "could not transcribe audio"}
			}
		}

		res := asst.HandleText(ctx, text, command.SourceRemote)
		return &remote.Message{OK: res.Success, Text: res.Response}
	}
}
