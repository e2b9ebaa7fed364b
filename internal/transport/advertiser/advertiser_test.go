package advertiser

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildTXTOmitsAppNameWhenNotAdvertised(t *testing.T) {
	a := New(Config{SDKVersion: "1.2.3", PairingRequired: true, AppName: "Demo"}, nil)
	txt := a.buildTXT("Alice's Phone")
	require.Contains(t, txt, "device_name=Alice's Phone")
	require.Contains(t, txt, "protocol=1")
	require.Contains(t, txt, "sdk_version=1.2.3")
	require.Contains(t, txt, "pairing_required=true")
	require.NotContains(t, txt, "app_name=Demo")
}

func TestBuildTXTIncludesAppNameWhenAdvertised(t *testing.T) {
	a := New(Config{SDKVersion: "1.2.3", AdvertiseAppName: true, AppName: "Demo", AppVersion: "9.0"}, nil)
	txt := a.buildTXT("Alice's Phone")
	require.Contains(t, txt, "device_name=Alice's Phone")
	require.Contains(t, txt, "app_name=Demo")
	require.Contains(t, txt, "app_version=9.0")
}

func TestBuildTXTCarriesDeviceName(t *testing.T) {
	a := New(Config{SDKVersion: "1.2.3"}, nil)
	txt := a.buildTXT("ProbySDK-1234")
	require.Contains(t, txt, "device_name=ProbySDK-1234")
}

func TestAnonymizedInstanceNameIsStablePerProcess(t *testing.T) {
	require.Equal(t, anonymizedInstanceName(), anonymizedInstanceName())
}
