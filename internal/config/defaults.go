package config

const (
	defaultBaseURL                  = "https://api.cursor.com"
	defaultModel                    = "gpt-4"
	defaultRequestTimeoutSeconds    = 60
	defaultAgentPollIntervalSeconds = 5
	defaultAgentPollMaxAttempts     = 60
	defaultTemplatePath             = "prompt_template.txt"
	defaultRowDelaySeconds          = 2
	defaultDataDir                  = "~/.local/share/scribe"
	defaultLogDir                   = "~/.local/share/scribe/logs"
	defaultLogFormat                = "console"
	defaultLogLevel                 = "info"
	defaultNotifyRequestTimeout     = 10
)

// StrategyCompletion is the chat-completions generation strategy name.
const StrategyCompletion = "completion"

// StrategyAgent is the asynchronous agent generation strategy name.
const StrategyAgent = "agent"

func defaultStrategies() []string {
	return []string{StrategyCompletion, StrategyAgent}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		API: API{
			BaseURL:                  defaultBaseURL,
			Model:                    defaultModel,
			RequestTimeoutSeconds:    defaultRequestTimeoutSeconds,
			AgentPollIntervalSeconds: defaultAgentPollIntervalSeconds,
			AgentPollMaxAttempts:     defaultAgentPollMaxAttempts,
		},
		Generation: Generation{
			TemplatePath:    defaultTemplatePath,
			RowDelaySeconds: defaultRowDelaySeconds,
			Strategies:      defaultStrategies(),
		},
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
		},
	}
}
