package plugin

import (
	"context"
	"errors"
	"net/rpc"

	"github.com/autostack/autostack/pkg/domain/execution"
	"github.com/hashicorp/go-plugin"
)

// ExecutorService is the interface that executor plugins must implement.
// Paths and workdirs are in the agent's view of the project.
type ExecutorService interface {
	// Init configures the plugin before any directive is sent.
	Init(config map[string]string) error

	WriteFile(path, content string) error

	// RunCommand reports command failures inside the result so that the
	// output survives the RPC boundary.
	RunCommand(command, workdir string) (*CommandResult, error)
}

// CommandResult is the outcome of a command run by a plugin.
type CommandResult struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
}

// ExecutorPlugin is the implementation of plugin.Plugin so we can serve/consume this.
type ExecutorPlugin struct {
	Impl ExecutorService
}

func (p *ExecutorPlugin) Server(*plugin.MuxBroker) (interface{}, error) {
	return &ExecutorRPCServer{Impl: p.Impl}, nil
}

func (p *ExecutorPlugin) Client(b *plugin.MuxBroker, c *rpc.Client) (interface{}, error) {
	return &ExecutorRPCClient{Client: c}, nil
}

// RPC Client/Server wrappers
type WriteFileArgs struct {
	Path    string
	Content string
}

type RunCommandArgs struct {
	Command string
	Workdir string
}

type ExecutorRPCClient struct{ Client *rpc.Client }

func (g *ExecutorRPCClient) Init(config map[string]string) error {
	var resp interface{}
	return g.Client.Call("Plugin.Init", config, &resp)
}

func (g *ExecutorRPCClient) WriteFile(path, content string) error {
	var resp interface{}
	return g.Client.Call("Plugin.WriteFile", &WriteFileArgs{Path: path, Content: content}, &resp)
}

func (g *ExecutorRPCClient) RunCommand(command, workdir string) (*CommandResult, error) {
	var resp CommandResult
	err := g.Client.Call("Plugin.RunCommand", &RunCommandArgs{Command: command, Workdir: workdir}, &resp)
	return &resp, err
}

type ExecutorRPCServer struct{ Impl ExecutorService }

func (s *ExecutorRPCServer) Init(config map[string]string, resp *interface{}) error {
	return s.Impl.Init(config)
}

func (s *ExecutorRPCServer) WriteFile(args *WriteFileArgs, resp *interface{}) error {
	return s.Impl.WriteFile(args.Path, args.Content)
}

func (s *ExecutorRPCServer) RunCommand(args *RunCommandArgs, resp *CommandResult) error {
	result, err := s.Impl.RunCommand(args.Command, args.Workdir)
	if result != nil {
		*resp = *result
	}
	return err
}

// Remote adapts an ExecutorService to execution.Executor. net/rpc calls
// carry no context, so cancellation is only checked before each call.
type Remote struct {
	Service ExecutorService
}

var _ execution.Executor = Remote{}

func (r Remote) WriteFile(ctx context.Context, path, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return r.Service.WriteFile(path, content)
}

func (r Remote) RunCommand(ctx context.Context, command, workdir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	result, err := r.Service.RunCommand(command, workdir)
	if err != nil {
		return "", err
	}
	if result == nil {
		return "", nil
	}
	if result.Error != "" {
		return result.Output, errors.New(result.Error)
	}
	return result.Output, nil
}

// Local serves an execution.Executor as an ExecutorService. Build is
// called by Init with the configuration sent by the host.
type Local struct {
	Build func(config map[string]string) (execution.Executor, error)

	exec execution.Executor
}

func (l *Local) Init(config map[string]string) error {
	if l.Build == nil {
		return errors.New("plugin has no executor")
	}
	e, err := l.Build(config)
	if err != nil {
		return err
	}
	l.exec = e
	return nil
}

func (l *Local) WriteFile(path, content string) error {
	if l.exec == nil {
		return errors.New("plugin not initialised")
	}
	return l.exec.WriteFile(context.Background(), path, content)
}

func (l *Local) RunCommand(command, workdir string) (*CommandResult, error) {
	if l.exec == nil {
		return nil, errors.New("plugin not initialised")
	}
	out, err := l.exec.RunCommand(context.Background(), command, workdir)
	res := &CommandResult{Output: out}
	if err != nil {
		res.Error = err.Error()
	}
	return res, nil
}
