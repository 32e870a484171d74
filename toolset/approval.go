package toolset

import (
	"fmt"
	"unicode/utf8"

	"github.com/calvinalkan/fs-sandbox/sandbox"
)

// Tool names understood by [Toolset.NeedsApproval] and [Toolset.Describe].
const (
	ToolRead   = "read_file"
	ToolWrite  = "write_file"
	ToolEdit   = "edit_file"
	ToolList   = "list_files"
	ToolDelete = "delete_file"
	ToolMove   = "move_file"
	ToolCopy   = "copy_file"
)

// ToolCall is a tool invocation as received from an agent.
type ToolCall struct {
	Name string
	Args map[string]any
}

func (c ToolCall) arg(key string) (string, bool) {
	v, ok := c.Args[key]
	if !ok {
		return "", false
	}

	s, ok := v.(string)

	return s, ok
}

func (c ToolCall) argOr(key, fallback string) string {
	if s, ok := c.arg(key); ok {
		return s
	}

	return fallback
}

// ApprovalStatus is the decision of an approval check.
type ApprovalStatus int

const (
	// StatusBlocked means the call must not run at all.
	StatusBlocked ApprovalStatus = iota + 1
	// StatusPreApproved means the call may run without asking.
	StatusPreApproved
	// StatusNeedsApproval means a human must approve the call first.
	StatusNeedsApproval
)

func (s ApprovalStatus) String() string {
	switch s {
	case StatusBlocked:
		return "blocked"
	case StatusPreApproved:
		return "pre_approved"
	case StatusNeedsApproval:
		return "needs_approval"
	default:
		return "unknown"
	}
}

// ApprovalResult is Blocked(reason), PreApproved or NeedsApproval(description).
type ApprovalResult struct {
	status ApprovalStatus
	text   string
}

// Blocked returns a result refusing the call with reason.
func Blocked(reason string) ApprovalResult {
	return ApprovalResult{status: StatusBlocked, text: reason}
}

// PreApproved returns a result allowing the call.
func PreApproved() ApprovalResult {
	return ApprovalResult{status: StatusPreApproved}
}

// NeedsApproval returns a result asking for approval of the described call.
func NeedsApproval(description string) ApprovalResult {
	return ApprovalResult{status: StatusNeedsApproval, text: description}
}

func (r ApprovalResult) Status() ApprovalStatus { return r.status }

// Reason is the reason of a blocked result.
func (r ApprovalResult) Reason() string {
	if r.status != StatusBlocked {
		return ""
	}

	return r.text
}

// Description describes a call needing approval.
func (r ApprovalResult) Description() string {
	if r.status != StatusNeedsApproval {
		return ""
	}

	return r.text
}

func (r ApprovalResult) String() string {
	if r.text == "" {
		return r.status.String()
	}

	return r.status.String() + ": " + r.text
}

// NeedsApproval decides whether call may run, must be approved first, or is
// blocked because the sandbox would reject it anyway.
func (ts *Toolset) NeedsApproval(call ToolCall) ApprovalResult {
	switch call.Name {
	case ToolWrite, ToolEdit, ToolDelete, ToolRead:
		p, ok := call.arg("path")
		if !ok {
			return Blocked(fmt.Sprintf("Missing required 'path' argument for %s", call.Name))
		}

		op := sandbox.OpWrite
		if call.Name == ToolRead {
			op = sandbox.OpRead
		}

		r, reason := ts.check(p, op, "Path")
		if reason != "" {
			return Blocked(reason)
		}

		return ts.decide(call, needs(r, op))

	case ToolList:
		p := call.argOr("path", "/")
		if isListAll(p) {
			for _, root := range ts.sb.ReadableRoots() {
				if ts.sb.NeedsReadApproval(root) {
					return NeedsApproval(ts.Describe(call))
				}
			}

			return PreApproved()
		}

		r, reason := ts.check(p, sandbox.OpRead, "Path")
		if reason != "" {
			return Blocked(reason)
		}

		return ts.decide(call, r.Mount.ReadApproval)

	case ToolMove, ToolCopy:
		source, ok := call.arg("source")
		if !ok {
			return Blocked(fmt.Sprintf("Missing required 'source' argument for %s", call.Name))
		}

		destination, ok := call.arg("destination")
		if !ok {
			return Blocked(fmt.Sprintf("Missing required 'destination' argument for %s", call.Name))
		}

		srcOp := sandbox.OpWrite
		if call.Name == ToolCopy {
			srcOp = sandbox.OpRead
		}

		src, reason := ts.check(source, srcOp, "Source")
		if reason != "" {
			return Blocked(reason)
		}

		dst, reason := ts.check(destination, sandbox.OpWrite, "Destination")
		if reason != "" {
			return Blocked(reason)
		}

		return ts.decide(call, needs(src, srcOp) || needs(dst, sandbox.OpWrite))

	default:
		return NeedsApproval(ts.Describe(call))
	}
}

func (ts *Toolset) decide(call ToolCall, approval bool) ApprovalResult {
	if !approval {
		return PreApproved()
	}

	return NeedsApproval(ts.Describe(call))
}

func needs(r sandbox.Resolved, op sandbox.Op) bool {
	if op == sandbox.OpWrite {
		return r.Mount.RequiresWriteApproval()
	}

	return r.Mount.ReadApproval
}

// check resolves p for op and turns a rejection into a blocked reason about
// subject ("Path", "Source" or "Destination").
func (ts *Toolset) check(p string, op sandbox.Op, subject string) (sandbox.Resolved, string) {
	r, err := ts.sb.GetPathConfig(p, op)
	if err == nil {
		return r, ""
	}

	switch sandbox.KindOf(err) {
	case sandbox.KindPathNotInSandbox:
		return r, fmt.Sprintf("%s not in any mount: %s", subject, p)
	case sandbox.KindPathNotWritable:
		return r, fmt.Sprintf("%s is read-only: %s", subject, p)
	default:
		return r, err.Error()
	}
}

// Describe returns the one-line summary of call shown to the approver.
func (ts *Toolset) Describe(call ToolCall) string {
	p := call.argOr("path", "")

	switch call.Name {
	case ToolWrite:
		return fmt.Sprintf("Write %d chars to %s", utf8.RuneCountInString(call.argOr("content", "")), p)
	case ToolRead:
		return "Read from " + p
	case ToolEdit:
		return fmt.Sprintf("Edit %s: replace %d chars with %d chars", p,
			utf8.RuneCountInString(call.argOr("old_text", "")), utf8.RuneCountInString(call.argOr("new_text", "")))
	case ToolList:
		return fmt.Sprintf("List file paths in %s matching %s", call.argOr("path", "/"), call.argOr("pattern", DefaultListPattern))
	case ToolDelete:
		return "Delete " + p
	case ToolMove:
		return fmt.Sprintf("Move %s to %s", call.argOr("source", ""), call.argOr("destination", ""))
	case ToolCopy:
		return fmt.Sprintf("Copy %s to %s", call.argOr("source", ""), call.argOr("destination", ""))
	default:
		return fmt.Sprintf("%s(%s)", call.Name, p)
	}
}
