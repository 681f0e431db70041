package protocol

// Pairing types accepted by the device.
const (
	PairingPrompt = "PROMPT"
	PairingPIN    = "PIN"
)

// Registration is the payload of the "register" envelope.
type Registration struct {
	ForcePairing bool     `json:"forcePairing"`
	PairingType  string   `json:"pairingType"`
	ClientKey    string   `json:"client-key,omitempty"`
	Manifest     Manifest `json:"manifest"`
}

// Manifest declares the capabilities the client asks the device to grant.
type Manifest struct {
	ManifestVersion int         `json:"manifestVersion"`
	AppVersion      string      `json:"appVersion"`
	Signed          SignedBlock `json:"signed"`
	Permissions     []string    `json:"permissions"`
	Signatures      []Signature `json:"signatures"`
}

// SignedBlock is the vendor-signed part of the manifest. Its content is fixed
// by the device firmware and must not be altered or the signature check fails.
type SignedBlock struct {
	Created              string            `json:"created"`
	AppID                string            `json:"appId"`
	VendorID             string            `json:"vendorId"`
	LocalizedAppNames    map[string]string `json:"localizedAppNames"`
	LocalizedVendorNames map[string]string `json:"localizedVendorNames"`
	Permissions          []string          `json:"permissions"`
	Serial               string            `json:"serial"`
}

// Signature is a manifest signature entry.
type Signature struct {
	SignatureVersion int    `json:"signatureVersion"`
	Signature        string `json:"signature"`
}

const manifestSignature = "eyJhbGdvcml0aG0iOiJSU0EtU0hBMjU2Iiwia2V5SWQiOiJ0ZXN0LXNpZ25pbmctY2VydCIsInNpZ25hdHVyZVZlcnNpb24iOjF9." +
	"hrVRgjCwXVvE2OOSpDZ58hR+59aFNwYDyjQgKk3auukd7pcegmE2CzPCa0bJ0ZsRAcKkCTJrWo5iDzNhMBWRyaMOv5zWSrthlf7G128qvIlpMT0YNY+n/FaOHE73uLrS/g7swl3/qH/BGFG2Hu4RlL48eb3lLKqTt2xKHdCs6Cd4RMfJPYnzgvI4BNrFUKsjkcu+WD4OO2A27Pq1n50cMchmcaXadJhGrOqH5YmHdOCj5NSHzJYrsW0HPlpuAx/ECMeIZYDh6RMqaFM2DXzdKX9NmmyqzJ3o/0lkk/N97gfVRLW5hA29yeAwaCViZNCP8iC9aO0q9fQojoa7NQnAtw=="

var signedPermissions = []string{
	"TEST_SECURE",
	"CONTROL_INPUT_TEXT",
	"CONTROL_MOUSE_AND_KEYBOARD",
	"READ_INSTALLED_APPS",
	"READ_LGE_SDX",
	"READ_NOTIFICATIONS",
	"SEARCH",
	"WRITE_SETTINGS",
	"WRITE_NOTIFICATION_ALERT",
	"CONTROL_POWER",
	"READ_CURRENT_CHANNEL",
	"READ_RUNNING_APPS",
	"READ_UPDATE_INFO",
	"UPDATE_FROM_REMOTE_APP",
	"READ_LGE_TV_INPUT_EVENTS",
	"READ_TV_CURRENT_TIME",
}

var requestedPermissions = []string{
	"LAUNCH",
	"LAUNCH_WEBAPP",
	"APP_TO_APP",
	"CLOSE",
	"TEST_OPEN",
	"TEST_PROTECTED",
	"CONTROL_AUDIO",
	"CONTROL_DISPLAY",
	"CONTROL_INPUT_JOYSTICK",
	"CONTROL_INPUT_MEDIA_RECORDING",
	"CONTROL_INPUT_MEDIA_PLAYBACK",
	"CONTROL_INPUT_TV",
	"CONTROL_POWER",
	"READ_APP_STATUS",
	"READ_CURRENT_CHANNEL",
	"READ_INPUT_DEVICE_LIST",
	"READ_NETWORK_STATE",
	"READ_RUNNING_APPS",
	"READ_TV_CHANNEL_LIST",
	"WRITE_NOTIFICATION_TOAST",
	"READ_POWER_STATE",
	"READ_COUNTRY_INFO",
	"READ_SETTINGS",
	"CONTROL_TV_SCREEN",
	"CONTROL_TV_STANBY",
	"CONTROL_FAVORITE_GROUP",
	"CONTROL_USER_INFO",
	"CHECK_BLUETOOTH_DEVICE",
	"CONTROL_BLUETOOTH",
	"CONTROL_TIMER_INFO",
	"STB_INTERNAL_CONNECTION",
	"CONTROL_RECORDING",
	"READ_RECORDING_STATE",
	"WRITE_RECORDING_LIST",
	"READ_RECORDING_LIST",
	"READ_RECORDING_SCHEDULE",
	"WRITE_RECORDING_SCHEDULE",
	"READ_STORAGE_DEVICE_LIST",
	"READ_TV_PROGRAM_INFO",
	"CONTROL_BOX_CHANNEL",
	"READ_TV_ACR_AUTH_TOKEN",
	"READ_TV_CONTENT_STATE",
	"READ_TV_CURRENT_TIME",
	"ADD_LAUNCHER_CHANNEL",
	"SET_CHANNEL_SKIP",
	"RELEASE_CHANNEL_SKIP",
	"CONTROL_CHANNEL_BLOCK",
	"DELETE_SELECT_CHANNEL",
	"CONTROL_CHANNEL_GROUP",
	"SCAN_TV_CHANNELS",
	"CONTROL_TV_POWER",
	"CONTROL_WOL",
}

// DefaultManifest returns the capability manifest sent on registration.
// A fresh copy is returned on every call.
func DefaultManifest() Manifest {
	return Manifest{
		ManifestVersion: 1,
		AppVersion:      "1.1",
		Signed: SignedBlock{
			Created:  "20140509",
			AppID:    "com.lge.test",
			VendorID: "com.lge",
			LocalizedAppNames: map[string]string{
				"":       "LG Remote App",
				"ko-KR":  "리모컨 앱",
				"zxx-XX": "ЛГ Rэмotэ AПП",
			},
			LocalizedVendorNames: map[string]string{
				"": "LG Electronics",
			},
			Permissions: append([]string(nil), signedPermissions...),
			Serial:      "2f930e2d2cfe083771f68e4fe7bb07",
		},
		Permissions: append([]string(nil), requestedPermissions...),
		Signatures: []Signature{
			{SignatureVersion: 1, Signature: manifestSignature},
		},
	}
}

// NewRegistration builds the registration envelope. An empty clientKey asks
// the device to prompt the user for confirmation.
func NewRegistration(clientKey string) (*Envelope, error) {
	payload := Registration{
		ForcePairing: false,
		PairingType:  PairingPrompt,
		ClientKey:    clientKey,
		Manifest:     DefaultManifest(),
	}
	return NewRequest(RegisterID, KindRegister, "", payload)
}
