package validator

import (
	"github.com/xplshn/pcgk/pkg/diag"
	"github.com/xplshn/pcgk/pkg/kernel"
	"github.com/xplshn/pcgk/pkg/parser"
)

type PinDescs interface {
	InputDesc(label string) *kernel.DataCollectionDesc
}

// Runtime checks the attribute functions of k against the data bound to its
// input pins. It runs once bindings are known, after Static succeeded.
func Runtime(k Kernel, descs PinDescs, log *diag.Log) bool {
	s := k.Settings()
	ok := true
	for _, ps := range k.ParsedSources() {
		for _, fn := range ps.AttributeFunctions {
			_, isInput := s.InputPin(fn.Pin)
			_, isOutput := s.OutputPin(fn.Pin)
			switch {
			case !isInput && !isOutput:
				log.ErrorAt(k.Name(), ps.File, fn.NameRange, "Tried to call attribute function '%s' on non-existent pin '%s'.", functionName(fn), fn.Pin)
				ok = false
			case isInput && fn.Func == parser.Set:
				log.ErrorAt(k.Name(), ps.File, fn.NameRange, "Tried to call attribute function '%s' on read-only input pin '%s'.", functionName(fn), fn.Pin)
				ok = false
			case isInput:
				found, typed := descs.InputDesc(fn.Pin).ContainsAttribute(fn.Key())
				if !found {
					log.ErrorAt(k.Name(), ps.File, fn.NameRange, "Tried to call attribute function '%s' on attribute '%s' which does not exist.", functionName(fn), fn.Name)
					ok = false
				} else if !typed {
					log.ErrorAt(k.Name(), ps.File, fn.NameRange, "Tried to call attribute function '%s' on attribute '%s' which is not of type '%s'.", functionName(fn), fn.Name, fn.Type)
					ok = false
				}
			}
		}
	}
	return ok
}

func functionName(fn parser.AttributeFunction) string {
	return fn.Pin + "_" + fn.Func.String() + fn.Type.String()
}
