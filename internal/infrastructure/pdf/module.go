package pdf

import (
	"go.uber.org/fx"

	"signflow/internal/usecase"
)

func providePDFInspector(i Inspector) usecase.PDFInspector {
	return i
}

var Module = fx.Module("pdf",
	fx.Provide(NewInspector),
	fx.Provide(providePDFInspector),
)
