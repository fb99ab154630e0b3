// Package config resolves hoover's configuration record. Loading the
// YAML file and parsing CLI flags are external glue (spec.md §1); this
// package defines the resolved Settings record the pipeline consumes
// and a thin loader for it.
package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Settings is the fully resolved configuration record handed to the
// pipeline orchestrator. Every section has defaults so a missing
// config.yaml still produces a usable Settings value.
type Settings struct {
	Audio    AudioSettings    `yaml:"audio"`
	Chunking ChunkingSettings `yaml:"chunking"`
	STT      STTSettings      `yaml:"stt"`
	Speaker  SpeakerSettings  `yaml:"speaker"`
	Writer   WriterSettings   `yaml:"writer"`
	UDP      UDPSettings      `yaml:"udp"`
	VCS      VCSSettings      `yaml:"vcs"`
}

type AudioSettings struct {
	SampleRate     int    `yaml:"sample_rate"`
	BacklogSeconds int    `yaml:"backlog_seconds"`
	Device         string `yaml:"device"`
}

type ChunkingSettings struct {
	ChunkLenSecs float64 `yaml:"chunk_len_secs"`
	OverlapSecs  float64 `yaml:"overlap_secs"`
	MinFlushSecs float64 `yaml:"min_flush_secs"`
}

type STTSettings struct {
	Backend      string `yaml:"backend"` // "whisper", "vosk", "openai"
	ModelPath    string `yaml:"model_path"`
	OpenAIAPIKey string `yaml:"openai_api_key"`
	OpenAIModel  string `yaml:"openai_model"`
}

type SpeakerSettings struct {
	ModelPath     string  `yaml:"model_path"`
	ProfilesDir   string  `yaml:"profiles_dir"`
	MinConfidence float32 `yaml:"min_confidence"`
	FilterUnknown bool    `yaml:"filter_unknown"`
}

type WriterSettings struct {
	OutputDir string `yaml:"output_dir"`
}

type UDPSettings struct {
	Enabled           bool   `yaml:"enabled"`
	ListenAddr        string `yaml:"listen_addr"`
	KeyFile           string `yaml:"key_file"`
	BlockDurationSecs int    `yaml:"block_duration_secs"`
	Firewall          string `yaml:"firewall"` // "firewalld", "nftables", "none"
	NftSet            string `yaml:"nft_set"`
}

type VCSSettings struct {
	AutoCommit bool   `yaml:"auto_commit"`
	AutoPush   bool   `yaml:"auto_push"`
	RepoDir    string `yaml:"repo_dir"`
}

// Default returns the documented defaults for every section.
func Default() *Settings {
	home, _ := os.UserHomeDir()
	return &Settings{
		Audio: AudioSettings{
			SampleRate:     16000,
			BacklogSeconds: 20,
		},
		Chunking: ChunkingSettings{
			ChunkLenSecs: 30,
			OverlapSecs:  5,
			MinFlushSecs: 1,
		},
		STT: STTSettings{
			Backend: "whisper",
		},
		Speaker: SpeakerSettings{
			ProfilesDir:   filepath.Join(home, ".local", "share", "hoover", "profiles"),
			ModelPath:     filepath.Join(home, ".local", "share", "hoover", "models", "speaker_embedding.onnx"),
			MinConfidence: 0.6,
		},
		Writer: WriterSettings{
			OutputDir: filepath.Join(home, "hoover-logs"),
		},
		UDP: UDPSettings{
			BlockDurationSecs: 600,
			Firewall:          "nftables",
		},
	}
}

// Path returns the default location, ~/.config/hoover/config.yaml.
func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "hoover", "config.yaml"), nil
}

// Load reads and merges config.yaml over the documented defaults. A
// missing file is not an error; it yields Default().
func Load(path string) (*Settings, error) {
	s := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}
