package engine

import "github.com/roach88/playscript/internal/diag"

// lineError attaches the script name, line number and verbatim text to a
// script error. Uncategorized errors (run log, cancellation) and errors that
// already carry a line are returned unchanged.
func lineError(scriptName string, line int, text string, err error) error {
	if err == nil || diag.KindOf(err) == "" {
		return err
	}
	if _, ok := diag.AsDiagnostic(err); ok {
		return err
	}
	return &diag.Diagnostic{Script: scriptName, Line: line, Text: text, Err: err}
}

func notImplemented(kw string) error {
	return diag.Errorf(diag.KindNotImplemented, "%s loops are not yet implemented!", kw)
}
