package da

import "github.com/wippyai/opc-classic/com"

var (
	IID_IOPCServer                   = com.MustParseGUID("{39c13a4d-011e-11d0-9675-0020afd8adb3}")
	IID_IOPCServerPublicGroups       = com.MustParseGUID("{39c13a4e-011e-11d0-9675-0020afd8adb3}")
	IID_IOPCBrowseServerAddressSpace = com.MustParseGUID("{39c13a4f-011e-11d0-9675-0020afd8adb3}")
	IID_IOPCGroupStateMgt            = com.MustParseGUID("{39c13a50-011e-11d0-9675-0020afd8adb3}")
	IID_IOPCPublicGroupStateMgt      = com.MustParseGUID("{39c13a51-011e-11d0-9675-0020afd8adb3}")
	IID_IOPCSyncIO                   = com.MustParseGUID("{39c13a52-011e-11d0-9675-0020afd8adb3}")
	IID_IOPCAsyncIO                  = com.MustParseGUID("{39c13a53-011e-11d0-9675-0020afd8adb3}")
	IID_IOPCItemMgt                  = com.MustParseGUID("{39c13a54-011e-11d0-9675-0020afd8adb3}")
	IID_IEnumOPCItemAttributes       = com.MustParseGUID("{39c13a55-011e-11d0-9675-0020afd8adb3}")
	IID_IOPCDataCallback             = com.MustParseGUID("{39c13a70-011e-11d0-9675-0020afd8adb3}")
	IID_IOPCAsyncIO2                 = com.MustParseGUID("{39c13a71-011e-11d0-9675-0020afd8adb3}")
	IID_IOPCItemProperties           = com.MustParseGUID("{39c13a72-011e-11d0-9675-0020afd8adb3}")

	IID_IOPCItemDeadbandMgt = com.MustParseGUID("{5946DA93-8B39-4ec8-AB3D-AA73DF5BC86F}")
	IID_IOPCItemSamplingMgt = com.MustParseGUID("{3E22D313-F08B-41a5-86C8-95E95CB49FFC}")
	IID_IOPCBrowse          = com.MustParseGUID("{39227004-A18F-4b57-8B0A-5235670F4468}")
	IID_IOPCItemIO          = com.MustParseGUID("{85C0B427-2893-4cbc-BD78-E5FC5146F08F}")
	IID_IOPCSyncIO2         = com.MustParseGUID("{730F5F0F-55B1-4c81-9E18-FF8A0904E1FA}")
	IID_IOPCAsyncIO3        = com.MustParseGUID("{0967B97B-36EF-423e-B6F8-6BFF1E40D39D}")
	IID_IOPCGroupStateMgt2  = com.MustParseGUID("{8E368666-D72E-4f78-87ED-647611C61C9F}")

	IID_IOPCShutdown    = com.MustParseGUID("{F31DFDE1-07B6-11d2-B2D8-0060083BA1FB}")
	IID_IOPCCommon      = com.MustParseGUID("{F31DFDE2-07B6-11d2-B2D8-0060083BA1FB}")
	IID_IOPCServerList  = com.MustParseGUID("{13486D50-4821-11D2-A494-3CB306C10000}")
	IID_IOPCServerList2 = com.MustParseGUID("{9DD0B56C-AD9E-43ee-8305-487F3188BF7A}")
	IID_IOPCEnumGUID    = com.MustParseGUID("{55C382C8-21C7-4e88-96C1-BECFB1E3F483}")
)

// Component categories a DA server registers under.
var (
	CATID_OPCDAServer10 = com.MustParseGUID("{63D5F430-CFE4-11d1-B2C8-0060083BA1FB}")
	CATID_OPCDAServer20 = com.MustParseGUID("{63D5F432-CFE4-11d1-B2C8-0060083BA1FB}")
	CATID_OPCDAServer30 = com.MustParseGUID("{CC603642-66D7-48f1-B69A-B625E73652D7}")
)

// CLSID_OpcServerList is the class of the OpcEnum server browser.
var CLSID_OpcServerList = com.MustParseGUID("{13486D51-4821-11D2-A494-3CB306C10000}")

func init() {
	for iid, name := range map[com.GUID]string{
		IID_IOPCServer:                   "IOPCServer",
		IID_IOPCServerPublicGroups:       "IOPCServerPublicGroups",
		IID_IOPCBrowseServerAddressSpace: "IOPCBrowseServerAddressSpace",
		IID_IOPCGroupStateMgt:            "IOPCGroupStateMgt",
		IID_IOPCPublicGroupStateMgt:      "IOPCPublicGroupStateMgt",
		IID_IOPCSyncIO:                   "IOPCSyncIO",
		IID_IOPCAsyncIO:                  "IOPCAsyncIO",
		IID_IOPCItemMgt:                  "IOPCItemMgt",
		IID_IEnumOPCItemAttributes:       "IEnumOPCItemAttributes",
		IID_IOPCDataCallback:             "IOPCDataCallback",
		IID_IOPCAsyncIO2:                 "IOPCAsyncIO2",
		IID_IOPCItemProperties:           "IOPCItemProperties",
		IID_IOPCItemDeadbandMgt:          "IOPCItemDeadbandMgt",
		IID_IOPCItemSamplingMgt:          "IOPCItemSamplingMgt",
		IID_IOPCBrowse:                   "IOPCBrowse",
		IID_IOPCItemIO:                   "IOPCItemIO",
		IID_IOPCSyncIO2:                  "IOPCSyncIO2",
		IID_IOPCAsyncIO3:                 "IOPCAsyncIO3",
		IID_IOPCGroupStateMgt2:           "IOPCGroupStateMgt2",
		IID_IOPCShutdown:                 "IOPCShutdown",
		IID_IOPCCommon:                   "IOPCCommon",
		IID_IOPCServerList:               "IOPCServerList",
		IID_IOPCServerList2:              "IOPCServerList2",
		IID_IOPCEnumGUID:                 "IOPCEnumGUID",
	} {
		com.RegisterInterfaceName(iid, name)
	}
}
