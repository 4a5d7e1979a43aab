package cli

import (
	"testing"

	"github.com/stretchr/testify/require"

	therrors "github.com/gear6io/tablehealth/pkg/errors"
	"github.com/gear6io/tablehealth/server/delta"
	"github.com/gear6io/tablehealth/server/iceberg"
	"github.com/gear6io/tablehealth/server/objectstore"
	"github.com/gear6io/tablehealth/server/tableformat"
)

func TestClassifyErrorMapsStorageFailuresToExitThree(t *testing.T) {
	err := therrors.New(objectstore.ErrTransport, "boom", nil)
	require.Equal(t, exitUnreachableStorage, classifyError(err))
}

func TestClassifyErrorMapsUnsupportedSchemeToExitTwo(t *testing.T) {
	err := therrors.New(objectstore.ErrUnsupportedScheme, "bad scheme", nil)
	require.Equal(t, exitInvalidConfig, classifyError(err))
}

func TestClassifyErrorMapsUnknownFormatToExitFour(t *testing.T) {
	err := therrors.New(tableformat.ErrUnknown, "unrecognized", nil)
	require.Equal(t, exitUnknownFormat, classifyError(err))
}

func TestClassifyErrorMapsParseFailuresToExitFive(t *testing.T) {
	require.Equal(t, exitParseError, classifyError(therrors.New(delta.ErrGapAtVersion, "gap", nil)))
	require.Equal(t, exitParseError, classifyError(therrors.New(iceberg.ErrNoMetadata, "missing", nil)))
}

func TestHumanBytes(t *testing.T) {
	require.Equal(t, "512 B", humanBytes(512))
	require.Equal(t, "1.00 KiB", humanBytes(1024))
	require.Equal(t, "20.00 MiB", humanBytes(20*1024*1024))
}
