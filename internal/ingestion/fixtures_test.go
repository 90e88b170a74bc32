package ingestion

const usgsFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"id": "us1", "properties": {"mag": 3.5, "place": "10km N of San Francisco", "time": 1700000000000, "title": "M 3.5 - 10km N of San Francisco", "url": "https://earthquake.usgs.gov/earthquakes/eventpage/us1"}, "geometry": {"coordinates": [-122.4, 37.7, 10]}},
    {"id": "us2", "properties": {"mag": 2.0, "place": "boundary", "time": 1700000100000, "title": "M 2.0"}, "geometry": {"coordinates": [10, 10, 5]}},
    {"id": "us3", "properties": {"mag": null, "place": "unknown", "time": 1700000200000, "title": "M ?"}, "geometry": {"coordinates": [10, 10, 5]}},
    {"id": "us4", "properties": {"mag": 4.1, "place": "nowhere", "time": 1700000300000, "title": "M 4.1"}, "geometry": {"coordinates": [10, 95, 5]}},
    {"id": "us5", "properties": {"mag": 5.2, "place": "Tonga", "time": 1700000400000, "title": "M 5.2 - Tonga"}, "geometry": {"coordinates": [-175.2, -21.1]}}
  ]
}`

const tsunamiFixture = `{
  "features": [
    {"id": "https://api.weather.gov/alerts/a1", "geometry": {"type": "Polygon", "coordinates": [[[-124.1, 41.2], [-124.0, 41.3], [-124.2, 41.4], [-124.1, 41.2]]]},
     "properties": {"id": "a1", "event": "Tsunami Warning", "headline": "Tsunami Warning issued", "description": "A tsunami warning is in effect", "areaDesc": "Coastal Del Norte", "onset": "2024-01-15T10:00:00-08:00", "sent": "2024-01-15T09:55:00-08:00"}},
    {"id": "a2", "geometry": {"type": "MultiPolygon", "coordinates": [[[[-155.5, 19.5], [-155.4, 19.6], [-155.3, 19.5], [-155.5, 19.5]]]]},
     "properties": {"id": "a2", "event": "Tsunami Watch", "headline": "Watch", "instruction": "Stay alert", "areaDesc": "Hawaii", "onset": null, "sent": "2024-01-15T11:00:00Z"}},
    {"id": "a3", "geometry": {"type": "Point", "coordinates": [-70.1, 43.5]},
     "properties": {"id": "a3", "event": "Tsunami Advisory", "headline": "Advisory", "areaDesc": "Maine", "onset": "2024-01-15T12:00:00Z"}},
    {"id": "a4", "geometry": {"type": "Point", "coordinates": [-70.1, 43.5]},
     "properties": {"id": "a4", "event": "Tsunami Information Statement", "headline": "Info", "areaDesc": "Maine", "onset": "2024-01-15T08:00:00Z"}},
    {"id": "a5", "geometry": null,
     "properties": {"id": "a5", "event": "Tsunami Warning", "headline": "No geometry", "onset": "2024-01-15T12:00:00Z"}},
    {"id": "a6", "geometry": {"type": "LineString", "coordinates": [[-70.1, 43.5], [-70.2, 43.6]]},
     "properties": {"id": "a6", "event": "Tsunami Warning", "headline": "Line", "onset": "2024-01-15T12:00:00Z"}}
  ]
}`

const floodFixture = `{
  "features": [
    {"id": "f1", "geometry": {"type": "Point", "coordinates": [-90.1, 30.0]},
     "properties": {"id": "f1", "event": "Flood Advisory", "headline": "Minor flooding", "description": "River at 3.5 feet above flood stage", "areaDesc": "Orleans", "onset": "2024-03-01T10:00:00Z", "urgency": "Expected", "certainty": "Likely"}},
    {"id": "f2", "geometry": {"type": "Polygon", "coordinates": [[[-95.0, 29.0], [-94.5, 29.0], [-94.5, 30.0], [-95.0, 29.0]]]},
     "properties": {"id": "f2", "event": "Flash Flood Warning", "headline": "Flash flooding", "areaDesc": "Harris", "onset": "2024-03-01T11:00:00Z", "urgency": "Immediate", "certainty": "Likely"}},
    {"id": "f3", "geometry": {"type": "MultiPolygon", "coordinates": [[[[-100.0, 35.0], [-99.0, 35.0], [-99.0, 36.0], [-100.0, 35.0]]]]},
     "properties": {"id": "f3", "event": "Flood Watch", "headline": "Watch", "instruction": "Monitor conditions", "areaDesc": "Oklahoma", "sent": "2024-03-01T09:00:00Z", "urgency": "Immediate", "certainty": "Possible"}},
    {"id": "f4", "geometry": {"type": "Polygon", "coordinates": [[[-80.0, 25.0], [-80.1, 25.0]]]},
     "properties": {"id": "f4", "event": "Coastal Flood Statement", "headline": "Statement", "areaDesc": "Miami", "onset": "2024-03-01T12:00:00Z"}},
    {"id": "f5", "geometry": {"type": "Polygon", "coordinates": [[[-120.0, 40.0], [-118.0, 40.0], [-118.0, 42.0], [-120.0, 40.0]]]},
     "properties": {"id": "f5", "event": "River Flood Warning", "headline": "Major flooding", "areaDesc": "Sierra", "onset": "2024-03-01T08:00:00Z"}}
  ]
}`

const volcanoFixture = `{
  "type": "FeatureCollection",
  "features": [
    {"id": "e1", "geometry": {"type": "Point", "coordinates": [-155.287, 19.421]},
     "properties": {"Volcano_Number": 332010, "Eruption_Number": 22395, "Volcano_Name": "Kilauea", "StartDateYear": 2023, "StartDateMonth": 9, "StartDateDay": 10, "ExplosivityIndexMax": 0, "ActivityArea": "Halemaumau crater", "Activity_Type": "Confirmed Eruption"}},
    {"id": "e2", "geometry": {"type": "Point", "coordinates": [-175.382, -20.545]},
     "properties": {"Volcano_Number": 243040, "Eruption_Number": 22500, "Volcano_Name": "Hunga Tonga-Hunga Ha'apai", "StartDateYear": 2021, "StartDateMonth": null, "StartDateDay": null, "ExplosivityIndexMax": 5, "ActivityArea": null, "Activity_Type": "Confirmed Eruption"}},
    {"id": "e3", "geometry": {"type": "Point", "coordinates": [14.999, 37.748]},
     "properties": {"Volcano_Number": 211060, "Eruption_Number": 22000, "Volcano_Name": "Etna", "StartDateYear": 2015, "StartDateMonth": 12, "StartDateDay": 3, "ExplosivityIndexMax": 2, "Activity_Type": "Confirmed Eruption"}},
    {"id": "e4", "geometry": {"type": "Point", "coordinates": [14.999, 37.748]},
     "properties": {"Volcano_Number": 211060, "Eruption_Number": 21000, "Volcano_Name": "Etna", "StartDateYear": 2008, "ExplosivityIndexMax": 3}},
    {"id": "e5", "geometry": {"type": "Point", "coordinates": [14.999, 37.748]},
     "properties": {"Volcano_Number": 211060, "Eruption_Number": 21001, "Volcano_Name": "Etna", "StartDateYear": null}},
    {"id": "e6", "geometry": null,
     "properties": {"Volcano_Number": 1, "Eruption_Number": 2, "Volcano_Name": "Ghost", "StartDateYear": 2020}}
  ]
}`

const wildfireFixture = `LATITUDE,Longitude,bright_ti4,scan,track,acq_date,acq_time,satellite,confidence,version
-12.5,130.9,350,0.4,0.4,2024-06-01,130,N,80,2.0NRT
34.1,-118.2,400,0.4,0.4,2024-06-01,2210,N,95,2.0NRT
34.1,-118.3,abc,0.4,0.4,2024-06-01,2215,N,95,2.0NRT
10.0,20.0,,0.4,0.4,2024-06-01,0100,N,50,2.0NRT
,20.0,330,0.4,0.4,2024-06-01,0100,N,50,2.0NRT
95.0,20.0,330,0.4,0.4,2024-06-01,0100,N,50,2.0NRT
1.0,2.0,330
5.5,6.6,320,0.4,0.4,2024-06-02,0005,N,n,2.0NRT
`
