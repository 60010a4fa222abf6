package log

import "go.uber.org/zap/zapcore"

type Level int8

const (
	DebugLevel = Level(zapcore.DebugLevel)
	InfoLevel  = Level(zapcore.InfoLevel)
	WarnLevel  = Level(zapcore.WarnLevel)
	ErrorLevel = Level(zapcore.ErrorLevel)
)

type OutputEncoder func(zapcore.EncoderConfig) zapcore.Encoder

func JsonOutputEncoder(config zapcore.EncoderConfig) zapcore.Encoder {
	return zapcore.NewJSONEncoder(config)
}

func ConsoleOutputEncoder(config zapcore.EncoderConfig) zapcore.Encoder {
	return zapcore.NewConsoleEncoder(config)
}

type LevelEncoder zapcore.LevelEncoder

func BracketLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

type Options struct {
	//output mode, the optional value is JsonOutputEncoder ConsoleOutputEncoder
	outputEncoder OutputEncoder
	//log level, the optional value is DebugLevel InfoLevel WarnLevel ErrorLevel
	level Level
	//report caller
	caller bool
	//report levelEncoder
	levelEncoder LevelEncoder
	//report Warn level stack trace
	stacktrace bool
	//time layout
	timeLayout string
	//init the named
	name string
}

func (o *Options) WithStacktrace(stacktrace bool) *Options {
	o.stacktrace = stacktrace
	return o
}

func (o *Options) WithTimeLayout(timeLayout string) *Options {
	o.timeLayout = timeLayout
	return o
}

func (o *Options) WithOutputEncoder(outputEncoder OutputEncoder) *Options {
	o.outputEncoder = outputEncoder
	return o
}

func (o *Options) WithLevel(level Level) *Options {
	o.level = level
	return o
}

func (o *Options) WithCaller(caller bool) *Options {
	o.caller = caller
	return o
}

func (o *Options) WithLevelEncoder(encoder LevelEncoder) *Options {
	o.levelEncoder = encoder
	return o
}

func (o *Options) WithNamed(name string) *Options {
	o.name = name
	return o
}

func DefaultOptions() *Options {
	return &Options{
		level:         InfoLevel,
		timeLayout:    "02/Jan/2006:15:04:05 -0700",
		levelEncoder:  BracketLevelEncoder,
		outputEncoder: JsonOutputEncoder,
	}
}
