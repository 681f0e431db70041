package commands

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
)

// Builder turns positional arguments into a request payload.
type Builder func(args []string) (any, error)

// Operation maps a logical command onto a URI and payload.
type Operation struct {
	Name    string
	Group   string
	Summary string
	URI     string
	// Prefix is the correlation id prefix, if any.
	Prefix string
	// Args names the positional arguments Build expects.
	Args  []string
	Build Builder
}

// Usage returns "name <arg> ..." for help output.
func (o Operation) Usage() string {
	usage := o.Name
	for _, a := range o.Args {
		usage += " <" + a + ">"
	}
	return usage
}

// Payload validates arity and builds the request payload.
func (o Operation) Payload(args []string) (any, error) {
	if len(args) != len(o.Args) {
		return nil, fmt.Errorf("%s expects %d argument(s), got %d: usage %s", o.Name, len(o.Args), len(args), o.Usage())
	}
	if o.Build == nil {
		return nil, nil
	}
	return o.Build(args)
}

const (
	uriToast   = "ssap://system.notifications/createToast"
	uriLaunch  = "ssap://system.launcher/launch"
	youtubeApp = "youtube.leanback.v4"
	legacyApp  = "com.webos.app.youtube"
)

var pictureKeys = []string{"contrast", "backlight", "brightness", "color", "pictureMode"}

var catalogue = []Operation{
	// Power
	{Name: "off", Group: "power", Summary: "Turn the display off", URI: "ssap://system/turnOff"},
	{Name: "screenOff", Group: "power", Summary: "Blank the screen", URI: "ssap://com.webos.service.tvpower/power/turnOffScreen"},
	{Name: "screenOn", Group: "power", Summary: "Unblank the screen", URI: "ssap://com.webos.service.tvpower/power/turnOnScreen"},
	{Name: "getPowerState", Group: "power", Summary: "Report the power state", URI: "ssap://com.webos.service.tvpower/power/getPowerState", Prefix: "power"},

	// Audio
	{Name: "mute", Group: "audio", Summary: "Mute or unmute", URI: "ssap://audio/setMute", Args: []string{"muted"},
		Build: func(args []string) (any, error) {
			muted, err := strconv.ParseBool(args[0])
			if err != nil {
				return nil, fmt.Errorf("muted must be true or false: %w", err)
			}
			return map[string]any{"mute": muted}, nil
		}},
	{Name: "setVolume", Group: "audio", Summary: "Set the volume level", URI: "ssap://audio/setVolume", Args: []string{"level"},
		Build: func(args []string) (any, error) {
			level, err := strconv.ParseUint(args[0], 10, 32)
			if err != nil {
				return nil, fmt.Errorf("level must be a non-negative integer: %w", err)
			}
			return map[string]any{"volume": level}, nil
		}},
	{Name: "volumeUp", Group: "audio", Summary: "Raise the volume", URI: "ssap://audio/volumeUp", Prefix: "volumeup"},
	{Name: "volumeDown", Group: "audio", Summary: "Lower the volume", URI: "ssap://audio/volumeDown", Prefix: "volumedown"},
	{Name: "audioStatus", Group: "audio", Summary: "Report mute and volume", URI: "ssap://audio/getStatus", Prefix: "status"},
	{Name: "audioVolume", Group: "audio", Summary: "Report the volume", URI: "ssap://audio/getVolume", Prefix: "volume"},
	{Name: "getSoundOutput", Group: "audio", Summary: "Report the sound output", URI: "ssap://com.webos.service.apiadapter/audio/getSoundOutput"},
	{Name: "setSoundOutput", Group: "audio", Summary: "Select the sound output", URI: "ssap://audio/changeSoundOutput", Args: []string{"output"},
		Build: field("output")},

	// Channels
	{Name: "getTVChannel", Group: "channels", Summary: "Report the current channel", URI: "ssap://tv/getCurrentChannel"},
	{Name: "setTVChannel", Group: "channels", Summary: "Tune to a channel", URI: "ssap://tv/openChannel", Args: []string{"channelId"},
		Build: field("channelId")},
	{Name: "listChannels", Group: "channels", Summary: "List channels", URI: "ssap://tv/getChannelList", Prefix: "channels"},
	{Name: "inputChannelUp", Group: "channels", Summary: "Next channel", URI: "ssap://tv/channelUp"},
	{Name: "inputChannelDown", Group: "channels", Summary: "Previous channel", URI: "ssap://tv/channelDown"},

	// Media
	{Name: "inputMediaPlay", Group: "media", Summary: "Play", URI: "ssap://media.controls/play"},
	{Name: "inputMediaPause", Group: "media", Summary: "Pause", URI: "ssap://media.controls/pause"},
	{Name: "inputMediaStop", Group: "media", Summary: "Stop", URI: "ssap://media.controls/stop"},
	{Name: "inputMediaRewind", Group: "media", Summary: "Rewind", URI: "ssap://media.controls/rewind"},
	{Name: "inputMediaFastForward", Group: "media", Summary: "Fast forward", URI: "ssap://media.controls/fastForward"},

	// Inputs
	{Name: "listInputs", Group: "inputs", Summary: "List external inputs", URI: "ssap://tv/getExternalInputList"},
	{Name: "setInput", Group: "inputs", Summary: "Switch input", URI: "ssap://tv/switchInput", Args: []string{"inputId"},
		Build: field("inputId")},
	{Name: "setDeviceInfo", Group: "inputs", Summary: "Label an input", URI: "luna://com.webos.service.eim/setDeviceInfo", Args: []string{"id", "icon", "label"},
		Build: func(args []string) (any, error) {
			return map[string]any{"id": args[0], "icon": args[1], "label": args[2]}, nil
		}},

	// Apps
	{Name: "listApps", Group: "apps", Summary: "List installed apps", URI: "ssap://com.webos.applicationManager/listApps"},
	{Name: "listLaunchPoints", Group: "apps", Summary: "List launch points", URI: "ssap://com.webos.applicationManager/listLaunchPoints"},
	{Name: "startApp", Group: "apps", Summary: "Launch an app", URI: uriLaunch, Args: []string{"appId"},
		Build: field("id")},
	{Name: "closeApp", Group: "apps", Summary: "Close an app", URI: "ssap://system.launcher/close", Args: []string{"appId"},
		Build: field("id")},
	{Name: "openAppWithPayload", Group: "apps", Summary: "Launch with a raw JSON payload", URI: "ssap://com.webos.applicationManager/launch", Args: []string{"json"},
		Build: rawJSON},
	{Name: "getForegroundAppInfo", Group: "apps", Summary: "Report the foreground app", URI: "ssap://com.webos.applicationManager/getForegroundAppInfo"},

	// Browser and YouTube
	{Name: "openBrowserAt", Group: "browser", Summary: "Open a URL in the browser", URI: "ssap://system.launcher/open", Args: []string{"url"},
		Build: field("target")},
	{Name: "openYoutubeId", Group: "browser", Summary: "Play a YouTube video by id", URI: uriLaunch, Args: []string{"videoId"},
		Build: func(args []string) (any, error) {
			return map[string]any{"id": youtubeApp, "contentId": args[0]}, nil
		}},
	{Name: "openYoutubeURL", Group: "browser", Summary: "Play a YouTube URL", URI: uriLaunch, Args: []string{"url"},
		Build: func(args []string) (any, error) {
			return map[string]any{"id": youtubeApp, "params": map[string]any{"contentTarget": args[0]}}, nil
		}},
	{Name: "openYoutubeLegacyId", Group: "browser", Summary: "Play a video id in the legacy YouTube app", URI: uriLaunch, Args: []string{"videoId"},
		Build: func(args []string) (any, error) {
			return map[string]any{"id": legacyApp, "contentId": args[0]}, nil
		}},
	{Name: "openYoutubeLegacyURL", Group: "browser", Summary: "Play a URL in the legacy YouTube app", URI: uriLaunch, Args: []string{"url"},
		Build: func(args []string) (any, error) {
			return map[string]any{"id": legacyApp, "params": map[string]any{"contentTarget": args[0]}}, nil
		}},

	// Notifications
	{Name: "notification", Group: "notifications", Summary: "Show a toast", URI: uriToast, Args: []string{"message"},
		Build: field("message")},
	{Name: "createAlert", Group: "notifications", Summary: "Show an alert with buttons", URI: "ssap://system.notifications/createAlert", Args: []string{"message", "buttonsJSON"},
		Build: func(args []string) (any, error) {
			var buttons json.RawMessage
			if err := json.Unmarshal([]byte(args[1]), &buttons); err != nil {
				return nil, fmt.Errorf("buttons must be JSON: %w", err)
			}
			return map[string]any{"message": args[0], "buttons": buttons}, nil
		}},
	{Name: "closeAlert", Group: "notifications", Summary: "Dismiss an alert", URI: "ssap://system.notifications/closeAlert", Args: []string{"alertId"},
		Build: field("alertId")},

	// 3D
	{Name: "input3DOn", Group: "display", Summary: "Enable 3D", URI: "ssap://com.webos.service.tv.display/set3DOn"},
	{Name: "input3DOff", Group: "display", Summary: "Disable 3D", URI: "ssap://com.webos.service.tv.display/set3DOff"},

	// Picture
	{Name: "getPictureSettings", Group: "picture", Summary: "Report picture settings", URI: "ssap://settings/getSystemSettings",
		Build: func([]string) (any, error) {
			return map[string]any{"category": "picture", "keys": pictureKeys}, nil
		}},
	{Name: "setPictureMode", Group: "picture", Summary: "Select a picture mode", URI: "ssap://settings/setSystemSettings", Args: []string{"mode"},
		Build: func(args []string) (any, error) {
			return map[string]any{"category": "picture", "settings": map[string]any{"pictureMode": args[0]}}, nil
		}},

	// System
	{Name: "swInfo", Group: "system", Summary: "Report software versions", URI: "ssap://com.webos.service.update/getCurrentSWInformation"},
	{Name: "getSystemInfo", Group: "system", Summary: "Report model information", URI: "ssap://system/getSystemInfo"},
	{Name: "listServices", Group: "system", Summary: "List services", URI: "ssap://api/getServiceList"},
	{Name: "networkInfo", Group: "system", Summary: "Report network interfaces and MAC addresses", URI: "ssap://com.webos.service.connectionmanager/getinfo"},
	{Name: "sendEnterKey", Group: "system", Summary: "Send the IME enter key", URI: "ssap://com.webos.service.ime/sendEnterKey"},
}

var index = func() map[string]Operation {
	m := make(map[string]Operation, len(catalogue))
	for _, op := range catalogue {
		m[op.Name] = op
	}
	return m
}()

// Lookup returns the operation registered under name.
func Lookup(name string) (Operation, bool) {
	op, ok := index[name]
	return op, ok
}

// Operations returns every operation ordered by group, then name.
func Operations() []Operation {
	ops := make([]Operation, len(catalogue))
	copy(ops, catalogue)
	sort.SliceStable(ops, func(i, j int) bool {
		if ops[i].Group != ops[j].Group {
			return ops[i].Group < ops[j].Group
		}
		return ops[i].Name < ops[j].Name
	})
	return ops
}

// field builds a payload with a single string field.
func field(name string) Builder {
	return func(args []string) (any, error) {
		return map[string]any{name: args[0]}, nil
	}
}

func rawJSON(args []string) (any, error) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(args[0]), &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	return payload, nil
}
