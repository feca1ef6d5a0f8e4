package script

import (
	"context"
	"fmt"
	"time"
)

// loopFrame tracks one active LOOP's bounds and remaining iterations, per
// spec.md §9's explicit-stack redesign (replacing the original's buggy
// recursive re-entry).
type loopFrame struct {
	start     int
	end       int
	count     int
	remaining int
}

// interpreter executes one program run. It is constructed fresh per Start
// call and discarded afterward.
type interpreter struct {
	engine   *Engine
	ctx      context.Context
	prog     program
	store    Store
	resolver Resolver
}

// execute walks the flat instruction list with an explicit program
// counter and an explicit loop-frame stack — no recursion, so a LOOP's
// body runs exactly count times regardless of nesting depth.
func (in *interpreter) execute() error {
	pc := 0
	var stack []loopFrame

	for pc < len(in.prog) {
		if in.engine.cancel.Load() {
			return nil
		}

		instr := in.prog[pc]
		switch instr.Op {
		case opSet:
			in.execSet(instr)
			pc++

		case opWait:
			if in.sleepCancelable(time.Duration(instr.Ms) * time.Millisecond) {
				return nil
			}
			pc++

		case opWaitUntil:
			cancelled, err := in.execWaitUntil(instr)
			if cancelled {
				return nil
			}
			if err != nil {
				return err
			}
			pc++

		case opLoopStart:
			if instr.Count <= 0 {
				pc = instr.Jump + 1
				continue
			}
			in.engine.logIteration(fmt.Sprintf("Iteration 1/%d", instr.Count))
			stack = append(stack, loopFrame{
				start: pc, end: instr.Jump, count: instr.Count, remaining: instr.Count - 1,
			})
			pc++

		case opLoopEnd:
			if len(stack) == 0 {
				pc++
				continue
			}
			top := &stack[len(stack)-1]
			if in.engine.cancel.Load() {
				stack = stack[:len(stack)-1]
				return nil
			}
			if top.remaining > 0 {
				iter := top.count - top.remaining + 1
				in.engine.logIteration(fmt.Sprintf("Iteration %d/%d", iter, top.count))
				top.remaining--
				pc = top.start + 1
			} else {
				stack = stack[:len(stack)-1]
				pc++
			}
		}
	}
	return nil
}

// execSet resolves (db, name) and writes the literal through the store.
// A missing field logs and continues, per spec.md §4.5.
func (in *interpreter) execSet(instr instruction) {
	field, ok := in.resolver.FieldByName(instr.DB, instr.Field)
	if !ok {
		in.engine.log.Error().Uint32("db", instr.DB).Str("field", instr.Field).
			Msg("SET: unknown field, continuing")
		return
	}
	if err := in.store.Write(instr.DB, field.Offset, field.Type, instr.Literal, field.Bit); err != nil {
		in.engine.log.Warn().Uint32("db", instr.DB).Str("field", instr.Field).Err(err).
			Msg("SET: write failed")
	}
}

// execWaitUntil polls the field every 50ms until the comparison holds or
// an optional timeout elapses. A missing field ends the run (returns a
// non-nil error); a timeout logs and is treated as success (spec.md §4.5).
func (in *interpreter) execWaitUntil(instr instruction) (cancelled bool, err error) {
	field, ok := in.resolver.FieldByName(instr.DB, instr.Field)
	if !ok {
		return false, runtimeErr(instr.Line, fmt.Sprintf("WAIT_UNTIL: unknown field %d.%s", instr.DB, instr.Field))
	}

	start := time.Now()
	for {
		if in.engine.cancel.Load() {
			return true, nil
		}

		v, readErr := in.store.Read(instr.DB, field.Offset, field.Type, field.Bit)
		if readErr == nil {
			matched, cmpErr := compareValues(v, instr.CmpOp, instr.Literal)
			if cmpErr == nil && matched {
				return false, nil
			}
		}

		if instr.HasTimeout && time.Since(start) >= time.Duration(instr.TimeoutMs)*time.Millisecond {
			in.engine.log.Warn().Uint32("db", instr.DB).Str("field", instr.Field).
				Msg("WAIT_UNTIL: timed out, continuing")
			return false, nil
		}

		if in.sleepCancelable(pollSlice) {
			return true, nil
		}
	}
}

// sleepCancelable sleeps d in pollSlice-sized slices, checking the cancel
// flag between each (spec.md §4.5's WAIT semantics). It returns true if
// cancellation was observed before d elapsed.
func (in *interpreter) sleepCancelable(d time.Duration) bool {
	remaining := d
	for remaining > 0 {
		if in.engine.cancel.Load() {
			return true
		}
		slice := pollSlice
		if remaining < slice {
			slice = remaining
		}
		time.Sleep(slice)
		remaining -= slice
	}
	return in.engine.cancel.Load()
}
