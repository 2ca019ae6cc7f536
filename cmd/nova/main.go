package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/oauth2"

	"nova/internal/audio"
	"nova/internal/audio/mic"
	"nova/internal/ipc"
	"nova/internal/jokes"
	"nova/internal/music"
	"nova/internal/nlu"
	"nova/internal/notify"
	"nova/internal/proxy"
	"nova/internal/serverapi"
	"nova/internal/tts"
	"nova/internal/voice"
	"nova/internal/weather"
	"nova/pkg/stt"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	serverURL := cli.StringP("server", "s", "", "Nova server URL (default $NOVA_SERVER_URL or "+serverapi.DefaultURL+")")
	proxyAddr := cli.StringP("proxy", "p", "", "Socks proxy address for outbound APIs")
	logLevel := cli.StringP("log", "l", "info", "Log level")

	text := cli.BoolP("text", "t", false, "Read commands from stdin instead of the microphone")
	files := cli.StringSliceP("input", "i", nil, "Transcribe these audio files instead of the microphone")
	modelPath := cli.StringP("model", "m", "third_party/whisper.cpp/models/ggml-base.en.bin", "Whisper model")
	lang := cli.String("lang", "en", "Speech language")
	mute := cli.Bool("mute", false, "Print replies instead of speaking them")

	name := cli.String("name", voice.DefaultName, "Assistant name in the log")
	wake := cli.String("wake", voice.DefaultWakeWord, "Wake word, empty to answer everything")
	chime := cli.String("chime", "beep.mp3", "Sound played on trigger")
	socket := cli.String("socket", ipc.DefaultSocket, "Control socket")

	llm := cli.String("llm", string(openai.ChatModelGPT5Nano), "Language model")
	staticWeather := cli.String("static-weather", "", "Answer weather with this fixed condition")
	tokenPath := cli.String("spotify-token", music.DefaultTokenPath(), "Spotify token file")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	if *serverURL == "" {
		*serverURL = os.Getenv("NOVA_SERVER_URL")
	}

	httpClient, err := proxy.NewClient(*proxyAddr, 0)
	if err != nil {
		log.Error("Failed to set up proxy", "proxy", *proxyAddr, "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	skills := &voice.Skills{Joke: jokes.Random}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		client := openai.NewClient(
			option.WithAPIKey(key),
			option.WithHTTPClient(httpClient),
		)
		skills.Brain = nlu.NewOpenAI(client, *llm)
		log.Debug("Loaded language model", "model", *llm)
	} else {
		log.Warn("OPENAI_API_KEY not set, questions and calendar entries disabled")
	}

	switch key := os.Getenv("WEATHER_API_KEY"); {
	case *staticWeather != "":
		skills.Weather = weather.Static{Condition: *staticWeather, TempC: 25}
		skills.Locator = weather.StaticCity("Springfield")
	case key != "":
		skills.Weather = weather.NewWeatherAPI(key, "", httpClient)
		// Direct on purpose: through the proxy it would locate the proxy.
		skills.Locator = weather.NewIPLocator("", nil)
	default:
		log.Warn("WEATHER_API_KEY not set, weather disabled")
	}

	if creds := music.CredentialsFromEnv(); creds.Configured() {
		oauthCtx := context.WithValue(ctx, oauth2.HTTPClient, httpClient)
		client, err := music.Connect(oauthCtx, music.NewAuthenticator(creds), *tokenPath)
		if err != nil {
			log.Warn("Spotify disabled", "err", err)
		} else {
			skills.Music = music.NewPlayer(client)
			log.Debug("Loaded Spotify")
		}
	}

	api := serverapi.New(*serverURL)
	skills.Calendar = api

	listener, closeListener, err := openListener(*text, *files, *modelPath, *lang)
	if err != nil {
		log.Error("Failed to open input", "err", err)
		os.Exit(1)
	}
	defer closeListener()

	var speaker voice.Speaker = printSpeaker{name: *name, w: os.Stdout}
	if !*mute {
		speaker = &espeakSpeaker{
			voice:  tts.New(*lang, 0),
			ducker: audio.NewDucker([]string{"nova", "eSpeak", "espeak-ng"}, 10),
		}
	}

	assistant := voice.NewAssistant(listener, speaker, api, voice.NewDispatcher(skills.Rules()...))
	assistant.Name = *name
	assistant.WakeWord = *wake

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go func() {
		err := ipc.Serve(ctx, *socket, func(msg ipc.ControlMessage) error {
			switch msg.Cmd {
			case ipc.CmdShutdown:
				log.Info("Shutdown requested")
				cancel()
			case ipc.CmdTrigger:
				if err := notify.Chime(*chime); err != nil {
					log.Warn("Failed to play chime", "err", err)
				}
				assistant.Trigger()
			default:
				return fmt.Errorf("%w %q", ipc.ErrUnknownCommand, msg.Cmd)
			}
			return nil
		})
		if err != nil {
			log.Error("Control socket failed", "err", err)
		}
	}()

	log.Info("Boot up - successful", "server", api.BaseURL())

	if err := assistant.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Assistant stopped", "err", err)
		os.Exit(1)
	}

	log.Info("Bye")
}

func openListener(text bool, files []string, modelPath, lang string) (voice.Listener, func(), error) {
	if text {
		return voice.NewStdinListener(), func() {}, nil
	}

	tr, err := stt.NewTranscriber(modelPath, stt.Options{
		Language:      lang,
		InitialPrompt: "Nova",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("whisper: %w", err)
	}
	log.Debug("Loaded whisper", "model", modelPath)

	if len(files) > 0 {
		return &fileListener{paths: files, stt: tr}, func() { tr.Close() }, nil
	}

	rec := mic.NewRecorder()
	if err := rec.Init(); err != nil {
		tr.Close()
		return nil, nil, fmt.Errorf("audio: %w", err)
	}
	log.Debug("Loaded recorder")

	return &micListener{rec: rec, stt: tr}, func() {
		rec.Close()
		tr.Close()
	}, nil
}
