package dispatch

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"os/exec"
	"strings"

	"github.com/eventloom/eventloom/internal/event"
	"github.com/eventloom/eventloom/internal/payload"
	"github.com/eventloom/eventloom/internal/render"
)

// launchApiCall performs the HTTP request on a worker so slow endpoints
// never stall the loop. The worker forwards the parsed response itself.
func (d *Dispatcher) launchApiCall(ctx context.Context, ev *event.Event, tctx map[string]any, nextName string) {
	spec := ev.ApiCall
	client, ok := d.pools.HTTP.Get(spec.PoolID)
	if !ok {
		d.log.Warn("unknown api pool", "event", ev.Name, "pool", spec.PoolID)
		d.metrics.drop(ctx, "pool_missing")
		return
	}
	d.workers.Go(func() error {
		ctx, span := d.metrics.actionSpan(ctx, "api_call", ev)
		defer span.End()

		url, err := render.Render(spec.URL, tctx)
		if err != nil {
			d.log.Warn("url template failed", "event", ev.Name, "error", err)
			d.metrics.fail(ctx, span, "template", err)
			return nil
		}
		var body []byte
		if spec.SendsBody() {
			if body, err = ev.Payload.AsBytes(); err != nil {
				d.log.Warn("request body not serializable", "event", ev.Name, "error", err)
				d.metrics.fail(ctx, span, "action_error", err)
				return nil
			}
		}
		resp, err := client.Do(ctx, spec.Method, url, body, spec.RequestContent == event.DataJSON)
		if err != nil {
			d.log.Warn("api call failed", "event", ev.Name, "url", url, "error", err)
			d.metrics.fail(ctx, span, "action_error", err)
			return nil
		}
		d.log.Debug("api call done", "event", ev.Name, "url", url, "status", resp.Status)
		data, err := decodeContent(resp.Body, spec.ResponseContent)
		if err != nil {
			d.log.Warn("response not decodable", "event", ev.Name, "url", url, "error", err)
			d.metrics.fail(ctx, span, "action_error", err)
			return nil
		}
		// The call event's own policy decides what happens to the
		// response: no keeps the event's payload and drops the body,
		// overwrite takes the body wholesale.
		data = ev.Payload.MergeWith(data, ev.MergePolicy)
		meta := payload.Metadata{ev.Name: map[string]any{"headers": headerTree(resp.Headers)}}
		d.forward(ctx, ev, nextName, data, meta)
		return nil
	})
}

// launchExecute spawns the subprocess on a worker, feeding the payload
// to stdin and turning stdout into the next event's payload.
func (d *Dispatcher) launchExecute(ctx context.Context, ev *event.Event, tctx map[string]any, nextName string) {
	spec := ev.Execute
	d.workers.Go(func() error {
		ctx, span := d.metrics.actionSpan(ctx, "execute", ev)
		defer span.End()

		args := append([]string(nil), spec.Args...)
		for idx, tpl := range spec.ReplaceArgs {
			if idx < 0 || idx >= len(args) {
				d.log.Error("replace_args index out of range", "event", ev.Name, "index", idx, "args", len(args))
				d.metrics.drop(ctx, "action_error")
				return nil
			}
			v, err := render.Render(tpl, tctx)
			if err != nil {
				d.log.Warn("argument template failed", "event", ev.Name, "index", idx, "error", err)
				d.metrics.fail(ctx, span, "template", err)
				return nil
			}
			args[idx] = v
		}

		cmd := exec.CommandContext(ctx, spec.Command, args...)
		cmd.Env = os.Environ()
		for k, v := range spec.Vars {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
		cmd.Stdin = bytes.NewReader(ev.Payload.ToBytes())
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			d.log.Warn("command failed", "event", ev.Name, "command", spec.Command,
				"error", err, "stderr", strings.TrimSpace(stderr.String()))
			d.metrics.fail(ctx, span, "action_error", err)
			return nil
		}
		data, err := payload.FromReader(&stdout, spec.DataType.PayloadType())
		if err != nil {
			d.log.Warn("command output not decodable", "event", ev.Name, "command", spec.Command, "error", err)
			d.metrics.fail(ctx, span, "action_error", err)
			return nil
		}
		d.forward(ctx, ev, nextName, data, nil)
		return nil
	})
}

// decodeContent maps raw response bytes onto a payload per the declared
// content type. Empty responses stay empty rather than failing a JSON
// parse.
func decodeContent(b []byte, t event.DataType) (payload.Data, error) {
	if len(b) == 0 {
		return payload.Empty(), nil
	}
	return payload.FromReader(bytes.NewReader(b), t.PayloadType())
}

// headerTree flattens response headers for the metadata tree.
func headerTree(h http.Header) map[string]any {
	out := make(map[string]any, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}
