package domain_test

import (
	"testing"

	"fieldplot/testutil"
)

func TestDomainStaysStdlibOnly(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.NonStdlibImportForbidden,
		"pkg/domain holds plain data types and must not depend on other packages")
}
